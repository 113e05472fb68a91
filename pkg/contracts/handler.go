package contracts

import "github.com/julienschmidt/httprouter"

// Handler is what the application server mounts behind its middleware chain:
// anything that can attach its reservation routes to a router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
