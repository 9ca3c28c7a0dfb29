package guest

// ABIVersion is the exact identifier the module-init entry point returns.
// The host string-compares it against its own expected version and refuses
// to load the module on any mismatch.
const ABIVersion = "streamlet_http_filter_abi_v1"

// active is the module's one dispatcher. Init runs from the module's
// main() during instantiation, strictly before the host makes any boundary
// call, so no synchronization is needed around the assignment.
var active *Dispatcher

// Init builds the runtime for a module. Call it exactly once from main():
//
//	func main() {
//		guest.Init(&myModule{})
//	}
//
// The module object is constructed and installed in one step; there is no
// separate registration phase.
func Init(m Module) *Dispatcher {
	if m == nil {
		panic("guest: Init with nil module")
	}
	if active != nil {
		panic("guest: Init called twice")
	}
	active = NewDispatcher(m)
	return active
}

// ActiveDispatcher returns the dispatcher installed by Init, or nil before
// initialization. Module-specific route configuration paths use it to
// register per-route configs.
func ActiveDispatcher() *Dispatcher {
	return active
}
