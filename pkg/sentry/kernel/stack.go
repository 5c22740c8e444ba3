package kernel

import (
	"fmt"

	"github.com/pintos-go/pintosim/pkg/sentry/usermem"
)

// buildArgStack constructs the System V i386 argument-passing stack frame
// described in spec §4.2.1 and §6. args[0] is the program name; the
// returned esp is what the simulated interrupt return hands to the user
// entry point.
func buildArgStack(as *usermem.AddressSpace, top uint32, args []string) (uint32, error) {
	esp := top
	argvAddrs := make([]uint32, len(args))

	for i := len(args) - 1; i >= 0; i-- {
		b := append([]byte(args[i]), 0)
		esp -= uint32(len(b))
		if !as.WriteBytes(esp, b) {
			return 0, fmt.Errorf("writing argument %d: out of stack space", i)
		}
		argvAddrs[i] = esp
	}

	for esp%4 != 0 {
		esp--
		if !as.WriteBytes(esp, []byte{0}) {
			return 0, fmt.Errorf("writing stack alignment padding: out of stack space")
		}
	}

	esp -= 4
	if !as.WriteWord(esp, 0) {
		return 0, fmt.Errorf("writing argv null sentinel: out of stack space")
	}

	for i := len(args) - 1; i >= 0; i-- {
		esp -= 4
		if !as.WriteWord(esp, argvAddrs[i]) {
			return 0, fmt.Errorf("writing argv[%d]: out of stack space", i)
		}
	}

	argvPtr := esp
	esp -= 4
	if !as.WriteWord(esp, argvPtr) {
		return 0, fmt.Errorf("writing argv pointer: out of stack space")
	}

	esp -= 4
	if !as.WriteWord(esp, uint32(len(args))) {
		return 0, fmt.Errorf("writing argc: out of stack space")
	}

	esp -= 4
	if !as.WriteWord(esp, 0) {
		return 0, fmt.Errorf("writing fake return address: out of stack space")
	}

	return esp, nil
}
