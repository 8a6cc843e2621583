package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/pslima001/govy-function-current-sub002/config"
	"github.com/pslima001/govy-function-current-sub002/model"
)

func TestEditalStoreSaveAndGet(t *testing.T) {
	store := NewEditalStore(100)

	store.Save(&model.Edital{
		ID:         "edital-1",
		Filename:   "pregao-001.pdf",
		Tenant:     "sp",
		ObjectName: "sp/edital-1/pregao-001.pdf",
		Status:     model.StatusPending,
		CreatedAt:  time.Now(),
	})

	retrieved := store.Get("edital-1")
	if retrieved == nil {
		t.Fatal("Expected to retrieve edital")
	}
	if retrieved.Filename != "pregao-001.pdf" {
		t.Errorf("Expected filename pregao-001.pdf, got %s", retrieved.Filename)
	}

	if store.Get("non-existent") != nil {
		t.Error("Expected nil for non-existent edital")
	}
}

func TestEditalStoreReturnsCopies(t *testing.T) {
	store := NewEditalStore(100)
	e := &model.Edital{ID: "copy", Status: model.StatusPending, CreatedAt: time.Now()}
	store.Save(e)

	e.Status = model.StatusFailed
	got := store.Get("copy")
	if got.Status != model.StatusPending {
		t.Errorf("Expected stored status pending, got %s", got.Status)
	}

	got.Status = model.StatusCompleted
	if store.Get("copy").Status != model.StatusPending {
		t.Error("Expected store to be unaffected by caller mutation")
	}
}

func TestEditalStoreGetByTenant(t *testing.T) {
	store := NewEditalStore(100)
	now := time.Now()

	store.Save(&model.Edital{ID: "1", Tenant: "sp", CreatedAt: now})
	store.Save(&model.Edital{ID: "2", Tenant: "sp", CreatedAt: now.Add(time.Minute)})
	store.Save(&model.Edital{ID: "3", Tenant: "rj", CreatedAt: now})

	sp := store.GetByTenant("sp")
	if len(sp) != 2 {
		t.Fatalf("Expected 2 editais for sp, got %d", len(sp))
	}
	if sp[0].ID != "2" {
		t.Errorf("Expected newest edital first, got %s", sp[0].ID)
	}
	if len(store.GetByTenant("rj")) != 1 {
		t.Errorf("Expected 1 edital for rj, got %d", len(store.GetByTenant("rj")))
	}
	if len(store.GetByTenant("mg")) != 0 {
		t.Errorf("Expected 0 editais for mg, got %d", len(store.GetByTenant("mg")))
	}
}

func TestEditalStoreFindByObject(t *testing.T) {
	store := NewEditalStore(100)
	store.Save(&model.Edital{ID: "x", ObjectName: "sp/x/edital.pdf", CreatedAt: time.Now()})

	if e := store.FindByObject("sp/x/edital.pdf"); e == nil || e.ID != "x" {
		t.Errorf("Expected to find edital x, got %+v", e)
	}
	if store.FindByObject("sp/y/edital.pdf") != nil {
		t.Error("Expected nil for unknown object")
	}
}

func TestEditalStoreDelete(t *testing.T) {
	store := NewEditalStore(100)
	store.Save(&model.Edital{ID: "delete-me", CreatedAt: time.Now()})

	store.Delete("delete-me")

	if store.Get("delete-me") != nil {
		t.Error("Expected edital to be deleted")
	}
}

func TestEditalStoreUpdates(t *testing.T) {
	store := NewEditalStore(100)
	store.Save(&model.Edital{ID: "u", Status: model.StatusPending, CreatedAt: time.Now()})

	store.UpdateTaskID("u", "task-9")
	e := store.Get("u")
	if e.MineruTaskID != "task-9" || e.Status != model.StatusProcessing {
		t.Errorf("Expected task-9/processing, got %s/%s", e.MineruTaskID, e.Status)
	}

	store.UpdateStatus("u", model.StatusFailed, "timeout")
	if e := store.Get("u"); e.ErrorMsg != "timeout" {
		t.Errorf("Expected error msg 'timeout', got '%s'", e.ErrorMsg)
	}

	store.UpdateContent("u", "sp/u/edital.pdf.content_list.json")
	e = store.Get("u")
	if e.Status != model.StatusCompleted {
		t.Errorf("Expected status %s, got %s", model.StatusCompleted, e.Status)
	}
	if e.ContentKey != "sp/u/edital.pdf.content_list.json" {
		t.Errorf("Expected content key to be set, got %s", e.ContentKey)
	}
	if e.ErrorMsg != "" {
		t.Errorf("Expected error msg cleared, got %s", e.ErrorMsg)
	}

	// unknown ids are ignored
	store.UpdateStatus("non-existent", model.StatusCompleted, "")
	store.UpdateContent("non-existent", "k")
}

func TestEditalStoreAutoCleanup(t *testing.T) {
	store := NewEditalStore(3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		store.Save(&model.Edital{
			ID:        fmt.Sprintf("e%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	if store.Count() != 3 {
		t.Errorf("Expected 3 editais after cleanup, got %d", store.Count())
	}
	if store.Get("e0") != nil || store.Get("e1") != nil {
		t.Error("Expected the two oldest editais to be removed")
	}
	if store.Get("e4") == nil {
		t.Error("Expected newest edital to be kept")
	}
}

func TestEditalStoreUnlimited(t *testing.T) {
	store := NewEditalStore(0)
	for i := 0; i < 10; i++ {
		store.Save(&model.Edital{ID: fmt.Sprintf("e%d", i), CreatedAt: time.Now()})
	}
	if store.Count() != 10 {
		t.Errorf("Expected 10 editais, got %d", store.Count())
	}
}

func TestGetEditalStore(t *testing.T) {
	InitEditalStore(&config.StoreConfig{MaxEditais: 50})
	if GetEditalStore() == nil {
		t.Fatal("Expected non-nil store")
	}
}
