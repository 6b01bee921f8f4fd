package metadata

import (
	"context"
	"testing"

	"codeintel/src/internal/types"
)

func TestFindClosestDumpsFiltersByRepoAndPrefix(t *testing.T) {
	store := NewMemoryStore()
	store.AddDump(types.Dump{ID: 1, RepositoryID: 42, Root: "src/", State: types.DumpStateCompleted})
	store.AddDump(types.Dump{ID: 2, RepositoryID: 42, Root: "vendor/", State: types.DumpStateCompleted})
	store.AddDump(types.Dump{ID: 3, RepositoryID: 7, Root: "src/", State: types.DumpStateCompleted})
	store.AddDump(types.Dump{ID: 4, RepositoryID: 42, Root: "src/", State: types.DumpStateProcessing})

	dumps, err := store.FindClosestDumps(context.Background(), 42, "abc", "src/a.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dumps) != 1 || dumps[0].ID != 1 {
		t.Fatalf("expected only dump 1, got %+v", dumps)
	}
}

func TestFindClosestDumpsPreservesInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	store.AddDump(types.Dump{ID: 1, RepositoryID: 1, Root: "", State: types.DumpStateCompleted})
	store.AddDump(types.Dump{ID: 2, RepositoryID: 1, Root: "", State: types.DumpStateCompleted})

	dumps, err := store.FindClosestDumps(context.Background(), 1, "abc", "a.ts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dumps) != 2 || dumps[0].ID != 1 || dumps[1].ID != 2 {
		t.Fatalf("expected insertion order [1, 2], got %+v", dumps)
	}
}

func TestGetDumpByIDAnyState(t *testing.T) {
	store := NewMemoryStore()
	store.AddDump(types.Dump{ID: 9, State: types.DumpStateErrored})

	d, ok, err := store.GetDumpByID(context.Background(), 9)
	if err != nil || !ok {
		t.Fatalf("expected dump 9 to be found, ok=%v err=%v", ok, err)
	}
	if d.State != types.DumpStateErrored {
		t.Fatalf("expected errored state to be surfaced, got %v", d.State)
	}

	_, ok, err = store.GetDumpByID(context.Background(), 404)
	if err != nil || ok {
		t.Fatalf("expected missing dump, ok=%v err=%v", ok, err)
	}
}

func TestReferencesScopingAndPagination(t *testing.T) {
	store := NewMemoryStore()
	store.AddDump(types.Dump{ID: 1, RepositoryID: 1, State: types.DumpStateCompleted})
	store.AddDump(types.Dump{ID: 2, RepositoryID: 1, State: types.DumpStateCompleted})
	store.AddDump(types.Dump{ID: 3, RepositoryID: 2, State: types.DumpStateCompleted})

	store.AddDependency(1, "npm", "id", "lodash", "4.17.0")
	store.AddDependency(2, "npm", "id", "lodash", "4.17.0")
	store.AddDependency(3, "npm", "id", "lodash", "4.17.0")

	sameRepo, err := store.GetSameRepoRemoteReferences(context.Background(), ReferencesParams{
		RepositoryID: 1, Scheme: "npm", Identifier: "id", Name: "lodash", Version: "4.17.0", Limit: 1, Offset: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sameRepo.TotalCount != 2 || len(sameRepo.Dumps) != 1 || sameRepo.NewOffset != 1 {
		t.Fatalf("unexpected same-repo result: %+v", sameRepo)
	}

	remote, err := store.GetReferences(context.Background(), ReferencesParams{
		RepositoryID: 1, Scheme: "npm", Identifier: "id", Name: "lodash", Version: "4.17.0", Limit: 10, Offset: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.TotalCount != 1 || len(remote.Dumps) != 1 || remote.Dumps[0].ID != 3 {
		t.Fatalf("unexpected remote result: %+v", remote)
	}
}

func TestGetPackage(t *testing.T) {
	store := NewMemoryStore()
	store.AddDump(types.Dump{ID: 5, State: types.DumpStateCompleted})
	store.SetPackage(5, "npm", "lodash", "4.17.0")

	pkg, ok, err := store.GetPackage(context.Background(), "npm", "lodash", "4.17.0")
	if err != nil || !ok || pkg.Dump.ID != 5 {
		t.Fatalf("expected dump 5, got %+v ok=%v err=%v", pkg, ok, err)
	}

	_, ok, err = store.GetPackage(context.Background(), "npm", "missing", "1.0.0")
	if err != nil || ok {
		t.Fatalf("expected no package found, ok=%v err=%v", ok, err)
	}
}
