//go:build naml_rcsan

package heap

import (
	"fmt"
	"runtime"
	"sync"
)

// Under the naml_rcsan build tag, every retain/release is recorded with
// a caller frame so a leaked or double-released object can be traced
// back to the allocation site — the manual-RC analogue of Go's own
// -race detector, which this codebase otherwise has no access to since
// naml's heap sits outside Go's GC.
var (
	sanMu      sync.Mutex
	sanHistory = map[*Object][]string{}
)

func sanRecord(obj *Object, op string) {
	_, file, line, _ := runtime.Caller(2)
	sanMu.Lock()
	defer sanMu.Unlock()
	sanHistory[obj] = append(sanHistory[obj], fmt.Sprintf("%s at %s:%d (rc=%d)", op, file, line, obj.RC))
}

// History returns every recorded retain/release for obj, most recent
// last, for sanitizer-build test assertions.
func History(obj *Object) []string {
	sanMu.Lock()
	defer sanMu.Unlock()
	return append([]string(nil), sanHistory[obj]...)
}
