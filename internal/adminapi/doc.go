// Package adminapi defines the JSON request/response shapes and HTTP
// helpers a star's loopback admin surface speaks, plus the small
// client used by starctl to talk to it: shared DTOs and a
// PostJSON/GetJSON pair for operator-to-star traffic.
package adminapi
