// Package events publishes model lifecycle events.
//
// The model manager emits a ModelEvent after every successful store,
// update and delete. Handlers registered on an Emitter receive the event
// synchronously, in registration order, within the request that caused it.
package events
