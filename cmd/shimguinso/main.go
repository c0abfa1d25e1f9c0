// Command shimguinso builds as a -buildmode=c-shared archive meant to be
// loaded via LD_PRELOAD. It has no interactive surface: package main exists
// here only to give cgo's //export a home and to run internal/bootstrap.Run
// from a pre-main constructor.
package main

/*
// shimguinInit is defined below with //export; forward-declared here so the
// constructor can call it without depending on cgo's generated export
// header, matching the same pattern internal/cbridge uses for its resume
// trampoline.
extern void shimguinInit(void);

// The constructor attribute runs shimguinInit before the host process's own
// main, the earliest point in the load sequence available without
// cooperation from the host.
__attribute__((constructor))
static void shimguin_ctor(void) {
	shimguinInit();
}
*/
import "C"

import "github.com/shimguin/shimguin-go/internal/bootstrap"

//export shimguinInit
func shimguinInit() {
	bootstrap.Run()
}

func main() {}
