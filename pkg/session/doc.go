// Package session implements the per-device protocol session: the MIDI
// stream parser, the identity/firmware handshake, the firmware update state
// machine, NRPN/RPN parameter assembly and the rate-limited outgoing
// buffer.
//
// A Session owns one input and one output port binding and is driven
// cooperatively: the transport delivers received messages through Receive,
// and the host loop calls Advance with the current time. All state lives on
// that one logical thread; the Session takes no locks and must not be
// called concurrently.
//
//	            Receive(ts, bytes)                 Advance(now)
//	                   |                                |
//	                   v                                v
//	 +---------------------------------+   +-------------------------+
//	 |  loop guard -> identity match   |   |  handshake polling      |
//	 |  vendor SysEx decode            |   |  update state machine   |
//	 |  channel/system parser          |   |  outgoing buffer drain  |
//	 |  NRPN/RPN assembler             |   |  port self-healing      |
//	 +---------------------------------+   +-------------------------+
//	                   |                                |
//	                   v                                v
//	           typed callbacks                 transport.OutputPort
//
// Long transmissions (firmware images) are never sent in one blocking
// call: they are split into chunks paced by Advance so the device's SysEx
// throughput limits are respected.
package session
