package main

/*
#include <stdlib.h>
#include "viewmodel.h"

static inline void call_item(view_model_item_fn fn, void *user, view_model vm, size_t index) {
	fn(user, vm, index);
}

static inline void call_destroy_user(view_model_destroy_user_fn fn, void *user) {
	fn(user);
}
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/go-drift/viewmodel/pkg/boundary"
)

// snapshotView is the part of *boundary.Snapshot the C layer reads.
type snapshotView interface {
	Len() int
	ValueAt(index int) []byte
	Destroy()
}

// cSnapshot pairs a snapshot with C copies of the values read so far. Go
// memory cannot be handed to C past the call that returns it, so each value
// is copied once on first read and freed with the snapshot.
type cSnapshot struct {
	snap snapshotView

	mu     sync.Mutex
	copies map[int]unsafe.Pointer
}

func newCSnapshot(s snapshotView) C.view_model {
	return C.view_model(cgo.NewHandle(&cSnapshot{snap: s}))
}

func lookupSnapshot(vm C.view_model) *cSnapshot {
	return cgo.Handle(vm).Value().(*cSnapshot)
}

func (c *cSnapshot) valueAt(index int) C.view_model_byte_slice {
	b := c.snap.ValueAt(index)
	if len(b) == 0 {
		return C.view_model_byte_slice{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.copies[index]
	if !ok {
		p = C.CBytes(b)
		if c.copies == nil {
			c.copies = make(map[int]unsafe.Pointer)
		}
		c.copies[index] = p
	}
	return C.view_model_byte_slice{bytes: (*C.uint8_t)(p), len: C.size_t(len(b))}
}

func (c *cSnapshot) destroy() {
	c.snap.Destroy()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.copies {
		C.free(p)
	}
	c.copies = nil
}

// observerRecord translates a C observer into a boundary.ObserverRecord.
// A NULL callback stays nil so boundary.Create rejects the record.
func observerRecord(obs C.view_model_observer) boundary.ObserverRecord {
	rec := boundary.ObserverRecord{User: obs.user}
	if obs.destroy_user != nil {
		fn := obs.destroy_user
		rec.DestroyUser = func(user unsafe.Pointer) {
			C.call_destroy_user(fn, user)
		}
	}
	rec.InsertedItem = itemFunc(obs.inserted_item)
	rec.RemovedItem = itemFunc(obs.removed_item)
	rec.ModifiedItem = itemFunc(obs.modified_item)
	return rec
}

func itemFunc(fn C.view_model_item_fn) boundary.ItemFunc {
	if fn == nil {
		return nil
	}
	return func(user unsafe.Pointer, s *boundary.Snapshot, index int) {
		C.call_item(fn, user, newCSnapshot(s), C.size_t(index))
	}
}
