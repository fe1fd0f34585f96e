// Package rpc implements request/reply calls and fire-and-forget events on
// top of the messaging transport.
//
// A Client publishes a Request envelope to a service queue and waits for the
// Reply carrying the same correlation id on its private reply queue. A Server
// consumes its service queue, dispatches each request to the handler
// registered for its Pattern and publishes the Reply to the request's replyTo
// queue. Events travel as Event envelopes on topics; every service that
// registered a handler for the topic receives one copy.
//
// Delivery is at-most-once. A request whose reply does not arrive in time
// fails with a TimeoutError, and its remote effect must be treated as unknown.
package rpc
