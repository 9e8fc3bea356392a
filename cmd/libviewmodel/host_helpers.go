package main

/*
#include <stdlib.h>
#include "viewmodel.h"

#define HOST_MAX_DELIVERIES 64

// host is a minimal C embedder. Callbacks never overlap, so only the
// published count needs atomics for readers on other threads.
typedef struct host {
	int destroyed;
	int count;
	int kinds[HOST_MAX_DELIVERIES];
	view_model vms[HOST_MAX_DELIVERIES];
	size_t indexes[HOST_MAX_DELIVERIES];
} host;

static void host_record(void *user, int kind, view_model vm, size_t index) {
	host *h = (host *)user;
	int n = __atomic_load_n(&h->count, __ATOMIC_ACQUIRE);
	if (n >= HOST_MAX_DELIVERIES) {
		return;
	}
	h->kinds[n] = kind;
	h->vms[n] = vm;
	h->indexes[n] = index;
	__atomic_store_n(&h->count, n + 1, __ATOMIC_RELEASE);
}

void host_inserted(void *user, view_model vm, size_t index) { host_record(user, 0, vm, index); }
void host_removed(void *user, view_model vm, size_t index) { host_record(user, 1, vm, index); }
void host_modified(void *user, view_model vm, size_t index) { host_record(user, 2, vm, index); }

void host_destroy_user(void *user) {
	__atomic_add_fetch(&((host *)user)->destroyed, 1, __ATOMIC_RELEASE);
}

static int host_count(host *h) { return __atomic_load_n(&h->count, __ATOMIC_ACQUIRE); }
static int host_destroyed(host *h) { return __atomic_load_n(&h->destroyed, __ATOMIC_ACQUIRE); }
*/
import "C"

import (
	"time"
	"unsafe"
)

// The helpers below drive the exported functions exactly as a C embedder
// does, with C-allocated observers and C callbacks. They keep cgo types out
// of the package tests.

// cHost owns a C host struct.
type cHost struct {
	c *C.host
}

// hostDelivery is one callback received by a cHost.
type hostDelivery struct {
	Kind  string
	VM    uintptr
	Index int
}

func newCHost() *cHost {
	return &cHost{c: (*C.host)(C.calloc(1, C.sizeof_host))}
}

func (h *cHost) free() {
	C.free(unsafe.Pointer(h.c))
}

// observer returns a view_model_observer bound to h. Callbacks named in
// omit are left NULL.
func (h *cHost) observer(omit ...string) C.view_model_observer {
	obs := C.view_model_observer{
		user:          unsafe.Pointer(h.c),
		destroy_user:  C.view_model_destroy_user_fn(C.host_destroy_user),
		inserted_item: C.view_model_item_fn(C.host_inserted),
		removed_item:  C.view_model_item_fn(C.host_removed),
		modified_item: C.view_model_item_fn(C.host_modified),
	}
	for _, name := range omit {
		switch name {
		case "destroy_user":
			obs.destroy_user = nil
		case "inserted_item":
			obs.inserted_item = nil
		case "removed_item":
			obs.removed_item = nil
		case "modified_item":
			obs.modified_item = nil
		}
	}
	return obs
}

func (h *cHost) count() int {
	return int(C.host_count(h.c))
}

func (h *cHost) destroyed() int {
	return int(C.host_destroyed(h.c))
}

func (h *cHost) deliveries() []hostDelivery {
	n := h.count()
	out := make([]hostDelivery, n)
	for i := range n {
		out[i] = hostDelivery{
			Kind:  [...]string{"insert", "remove", "modify"}[h.c.kinds[i]],
			VM:    uintptr(h.c.vms[i]),
			Index: int(h.c.indexes[i]),
		}
	}
	return out
}

// hostHandleNew calls view_model_handle_new. With noOut set it passes a NULL
// out_view_model.
func hostHandleNew(threads uint64, obs C.view_model_observer, noOut bool) (handle, vm uintptr) {
	var out C.view_model
	outp := &out
	if noOut {
		outp = nil
	}
	return uintptr(view_model_handle_new(C.size_t(threads), obs, outp)), uintptr(out)
}

// hostHandleNewConfigured calls view_model_handle_new_configured.
func hostHandleNewConfigured(obs C.view_model_observer) (handle, vm uintptr) {
	var out C.view_model
	return uintptr(view_model_handle_new_configured(obs, &out)), uintptr(out)
}

func hostHandleDestroy(handle uintptr) {
	view_model_handle_destroy(C.view_model_handle(handle))
}

func hostHandleJoin(handle uintptr, timeout time.Duration) int {
	return int(view_model_handle_join(C.view_model_handle(handle), C.int64_t(timeout.Milliseconds())))
}

func hostLen(vm uintptr) int {
	return int(view_model_len(C.view_model(vm)))
}

// hostValueAt returns the bytes at index and the raw pointer handed to C.
func hostValueAt(vm uintptr, index int) ([]byte, uintptr) {
	s := view_model_value_at_index(C.view_model(vm), C.size_t(index))
	if s.bytes == nil {
		return nil, 0
	}
	return C.GoBytes(unsafe.Pointer(s.bytes), C.int(s.len)), uintptr(unsafe.Pointer(s.bytes))
}

func hostDestroy(vm uintptr) {
	view_model_destroy(C.view_model(vm))
}

// hostWrap hands s to C as a view_model.
func hostWrap(s snapshotView) uintptr {
	return uintptr(newCSnapshot(s))
}

// hostSnapshot returns the Go side of a live view_model.
func hostSnapshot(vm uintptr) *cSnapshot {
	return lookupSnapshot(C.view_model(vm))
}

func hostJoinStatus(err error) int {
	return int(joinStatus(err))
}
