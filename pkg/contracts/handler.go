package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every API surface mounted on the application router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
