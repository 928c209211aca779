// Package webchat drives one streaming chat session against a backend that speaks the
// event protocol in pkg/protocol.
//
// Ownership model:
//   - A Client owns exactly one logical connection, the message store, the delta
//     assembler and the two watchdogs for its session.
//   - Every mutation (inbound frames, watchdog expirations, assembler frames, sends)
//     is serialized through the client mutex.
//   - Observers receive Events synchronously while that mutex is held. They must hand
//     work off (channels, tea.Program.Send) instead of calling back into the Client.
//
// Recommended setup:
//   - Build a Client with New and options such as WithTransportFactory,
//     WithIdentityStore and WithHistoryLoader.
//   - Attach a ScrollObserver or an eventbus.Forwarder with WithObserver.
//   - Call Connect, then SendText and friends; call Close when done.
package webchat
