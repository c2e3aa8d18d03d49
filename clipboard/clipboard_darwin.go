//go:build darwin

package clipboard

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
// #include <stdlib.h>
// #include <string.h>
//
// static int ef_item_count(void) {
//     NSArray *items = [[NSPasteboard generalPasteboard] pasteboardItems];
//     return (int)[items count];
// }
//
// static int ef_type_count(int i) {
//     NSArray *items = [[NSPasteboard generalPasteboard] pasteboardItems];
//     if (i >= (int)[items count]) return 0;
//     return (int)[[items[i] types] count];
// }
//
// // Returns a malloc'd copy of the j-th type of item i and its data.
// static char* ef_entry(int i, int j, void **data, int *len) {
//     @autoreleasepool {
//         NSArray *items = [[NSPasteboard generalPasteboard] pasteboardItems];
//         if (i >= (int)[items count]) return NULL;
//         NSPasteboardItem *item = items[i];
//         NSArray *types = [item types];
//         if (j >= (int)[types count]) return NULL;
//         NSString *type = types[j];
//         NSData *d = [item dataForType:type];
//         *len = (int)[d length];
//         *data = NULL;
//         if (*len > 0) {
//             *data = malloc(*len);
//             memcpy(*data, [d bytes], *len);
//         }
//         return strdup([type UTF8String]);
//     }
// }
//
// static void* ef_new_item(void) {
//     return [[NSPasteboardItem alloc] init];
// }
//
// static void ef_item_set(void *item, const char *type, const void *data, int len) {
//     @autoreleasepool {
//         NSData *d = [NSData dataWithBytes:data length:len];
//         [(NSPasteboardItem *)item setData:d forType:[NSString stringWithUTF8String:type]];
//     }
// }
//
// static int ef_write_items(void **items, int n) {
//     @autoreleasepool {
//         NSPasteboard *pb = [NSPasteboard generalPasteboard];
//         [pb clearContents];
//         NSMutableArray *arr = [NSMutableArray arrayWithCapacity:n];
//         for (int i = 0; i < n; i++) {
//             [arr addObject:(NSPasteboardItem *)items[i]];
//             [(NSPasteboardItem *)items[i] release];
//         }
//         if (n == 0) return 1;
//         return [pb writeObjects:arr] ? 1 : 0;
//     }
// }
//
// static int ef_write_text(const char *s) {
//     @autoreleasepool {
//         NSPasteboard *pb = [NSPasteboard generalPasteboard];
//         [pb clearContents];
//         return [pb setString:[NSString stringWithUTF8String:s] forType:NSPasteboardTypeString] ? 1 : 0;
//     }
// }
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

// TypeText is the pasteboard type of plain UTF-8 text.
const TypeText = "public.utf8-plain-text"

var errWrite = errors.New("pasteboard write failed")

type system struct {
	mu sync.Mutex
}

func newSystem() Board { return &system{} }

func (s *system) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int(C.ef_item_count())
	snap := make(Snapshot, 0, n)
	for i := range n {
		types := int(C.ef_type_count(C.int(i)))
		item := make(Item, 0, types)
		for j := range types {
			var data unsafe.Pointer
			var length C.int
			ctype := C.ef_entry(C.int(i), C.int(j), &data, &length)
			if ctype == nil {
				continue
			}
			e := Entry{Type: C.GoString(ctype)}
			if data != nil {
				e.Data = C.GoBytes(data, length)
				C.free(data)
			}
			C.free(unsafe.Pointer(ctype))
			item = append(item, e)
		}
		snap = append(snap, item)
	}
	return snap, nil
}

func (s *system) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]unsafe.Pointer, len(snap))
	for i, item := range snap {
		items[i] = C.ef_new_item()
		for _, e := range item {
			ctype := C.CString(e.Type)
			var data unsafe.Pointer
			if len(e.Data) > 0 {
				data = C.CBytes(e.Data)
			}
			C.ef_item_set(items[i], ctype, data, C.int(len(e.Data)))
			C.free(unsafe.Pointer(ctype))
			if data != nil {
				C.free(data)
			}
		}
	}

	var arr *unsafe.Pointer
	if len(items) > 0 {
		// The pointer array must live in C memory for the duration of the call.
		carr := C.malloc(C.size_t(len(items)) * C.size_t(unsafe.Sizeof(uintptr(0))))
		defer C.free(carr)
		copy(unsafe.Slice((*unsafe.Pointer)(carr), len(items)), items)
		arr = (*unsafe.Pointer)(carr)
	}
	if C.ef_write_items(arr, C.int(len(items))) == 0 {
		return errWrite
	}
	return nil
}

func (s *system) WriteText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs := C.CString(text)
	defer C.free(unsafe.Pointer(cs))
	if C.ef_write_text(cs) == 0 {
		return errWrite
	}
	return nil
}
