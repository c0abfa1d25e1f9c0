//go:build amd64 || mips64 || mips64le

package rendezvous

// Field offsets within glibc's struct r_debug on LP64 targets:
//
//	struct r_debug {
//	    int r_version;          // offset 0, 4 bytes + 4 bytes padding
//	    struct link_map *r_map; // offset 8
//	    ElfW(Addr) r_brk;       // offset 16
//	    enum { ... } r_state;   // offset 24, 4 bytes + 4 bytes padding
//	    ElfW(Addr) r_ldbase;    // offset 32
//	};
const (
	versionOffset uintptr = 0
	mapOffset     uintptr = 8
	brkOffset     uintptr = 16
	stateOffset   uintptr = 24
	ldbaseOffset  uintptr = 32
)
