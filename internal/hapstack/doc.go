// Package hapstack is an in-process accessory-protocol stack.
//
// It implements accessory.Stack for host builds: registered accessories are
// served as JSON over HTTP, value changes are pushed to websocket
// subscribers, and the accessory is advertised as _hap._tcp over mDNS.
//
// # Endpoints
//
//	GET /accessories                 accessory database
//	GET /characteristics?id=1.9,1.10 read values
//	PUT /characteristics             write values (204 or 207 multi-status)
//	GET /events                      websocket of value-change events
//
// Pairing and transport encryption are not implemented; the setup code is
// held only so it can be validated and reported.
//
// Client talks to these endpoints and is used by the watch command.
package hapstack
