package storage

import (
	"context"
	"testing"
)

func TestDocumentRepo_UpsertAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewDocumentRepo(db)

	doc := &DocumentRecord{
		RelPath: "notes/spacing.md",
		Folder:  "notes",
		Title:   "Spacing",
		Hash:    "hash-1",
	}
	if err := repo.Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatal("Upsert() should assign an ID to a new document")
	}

	byPath, err := repo.GetByPath(context.Background(), "notes/spacing.md")
	if err != nil {
		t.Fatalf("GetByPath() error = %v", err)
	}
	if byPath.ID != doc.ID || byPath.Title != "Spacing" || byPath.Hash != "hash-1" {
		t.Errorf("GetByPath() = %+v", byPath)
	}

	byID, err := repo.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.RelPath != "notes/spacing.md" {
		t.Errorf("GetByID() RelPath = %v", byID.RelPath)
	}
}

func TestDocumentRepo_UpsertExistingKeepsID(t *testing.T) {
	db := testDB(t)
	repo := NewDocumentRepo(db)

	doc := &DocumentRecord{RelPath: "a.md", Title: "Original", Hash: "h1"}
	if err := repo.Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	originalID := doc.ID

	updated := &DocumentRecord{RelPath: "a.md", Title: "Renamed", Hash: "h2"}
	if err := repo.Upsert(context.Background(), updated); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if updated.ID != originalID {
		t.Errorf("re-upsert by path should keep ID %v, got %v", originalID, updated.ID)
	}

	got, err := repo.GetByID(context.Background(), originalID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Renamed" || got.Hash != "h2" {
		t.Errorf("GetByID() = %+v, want updated title and hash", got)
	}
}

func TestDocumentRepo_GetNotFound(t *testing.T) {
	db := testDB(t)
	repo := NewDocumentRepo(db)

	if _, err := repo.GetByPath(context.Background(), "missing.md"); err != ErrNotFound {
		t.Errorf("GetByPath() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_ListAll(t *testing.T) {
	db := testDB(t)
	repo := NewDocumentRepo(db)

	for _, relPath := range []string{"b.md", "a.md", "c.md"} {
		doc := &DocumentRecord{RelPath: relPath, Hash: "h"}
		if err := repo.Upsert(context.Background(), doc); err != nil {
			t.Fatalf("Upsert(%s) error = %v", relPath, err)
		}
	}

	docs, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("ListAll() returned %d documents, want 3", len(docs))
	}
	for i, want := range []string{"a.md", "b.md", "c.md"} {
		if docs[i].RelPath != want {
			t.Errorf("ListAll()[%d].RelPath = %v, want %v (ordered by path)", i, docs[i].RelPath, want)
		}
	}
}

func TestDocumentRepo_DeleteCascades(t *testing.T) {
	db := testDB(t)
	docRepo := NewDocumentRepo(db)
	chunkRepo := NewChunkRepo(db)

	doc := &DocumentRecord{RelPath: "a.md", Hash: "h"}
	if err := docRepo.Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	parents := []ParentChunkRecord{{ID: "p-1", DocumentID: doc.ID, ParentIndex: 0, HeadingPath: "# H"}}
	children := []ChildChunkRecord{{ID: "c-1", ParentID: "p-1", DocumentID: doc.ID, ChildIndex: 0, Text: "text"}}
	if err := chunkRepo.ReplaceForDocument(context.Background(), doc.ID, parents, children); err != nil {
		t.Fatalf("ReplaceForDocument() error = %v", err)
	}

	if err := docRepo.Delete(context.Background(), doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	ids, err := chunkRepo.ListChildIDsByDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("ListChildIDsByDocument() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("document delete should cascade to chunks, %d remain", len(ids))
	}
}
