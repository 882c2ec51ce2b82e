// Package http exposes the booking engine over JSON.
//
// The router exposes the following endpoints:
//   - GET /healthz: liveness probe.
//   - GET /halls, POST /halls, GET|PUT|DELETE /halls/:id: hall catalog
//     exchanging the `hallDTO` payload defined in hall_handler.go.
//   - GET /rooms, POST /rooms, GET|PUT|DELETE /rooms/:id: room catalog
//     exchanging `roomDTO`. GET /rooms accepts hallId, minCapacity,
//     minSockets, hasProjector and hasMicSpeaker query parameters.
//   - GET /bookings, POST /bookings, GET|PUT|DELETE /bookings/:id: bookings
//     exchanging `bookingDTO`. Listing filters by roomId, hallId, staffId,
//     indexPrefix or date. A rejected write answers 409 with every conflict.
//   - POST|DELETE /bookings/:id/free-dates: marks or restores dates on which
//     a permanent class does not meet. Body: {"dates":["YYYY-MM-DD"]}.
//   - POST /conflicts/check: evaluates a draft without writing it.
//   - GET /unavailability, POST /unavailability, GET|DELETE /unavailability/:id.
//   - GET /halls/:id/schedule?date=: one day grid for the hall.
//   - GET /halls/:id/timetable?week=: the Monday-start week grid.
//   - GET /rooms-free?at=&limit=: rooms free at an instant.
//   - POST /rooms-alternatives: rooms where a draft slot has no conflicts.
//
// Grid responses carry an ETag and honour If-None-Match. Errors use the
// `errorResponse` payload defined in responder.go.
package http
