// Package ports defines the interfaces through which the conversation engine
// talks to the outside world: lead submission and delayed delivery. Adapters
// implement them; the engine depends only on the interfaces.
package ports
