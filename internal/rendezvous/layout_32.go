//go:build arm || mips || mipsle

package rendezvous

// Field offsets within glibc's struct r_debug on ILP32 targets:
//
//	struct r_debug {
//	    int r_version;          // offset 0, 4 bytes
//	    struct link_map *r_map; // offset 4
//	    ElfW(Addr) r_brk;       // offset 8
//	    enum { ... } r_state;   // offset 12, 4 bytes
//	    ElfW(Addr) r_ldbase;    // offset 16
//	};
const (
	versionOffset uintptr = 0
	mapOffset     uintptr = 4
	brkOffset     uintptr = 8
	stateOffset   uintptr = 12
	ldbaseOffset  uintptr = 16
)
