// Package hooks dispatches panel lifecycle events to registry mutations.
//
// The panel invokes the agent binary once per event and writes one JSON
// object to its standard input:
//
//	{
//	  "context": {"event": "Accounts::Create"},
//	  "data": {"user": "alice", "domain": "example.com", "homedir": "/home/alice"}
//	}
//
// ParseEvent decodes that envelope into a LifecycleEvent; Dispatcher.Dispatch
// routes it by "Category::Name" to a handler. Handlers are idempotent, so the
// panel retrying a delivery cannot corrupt the registry. Events the agent has
// no handler for are logged and ignored, never an error: the panel emits far
// more event types than the agent subscribes to.
//
// # Subscriptions
//
//	Accounts::Create   register the account's vhost
//	Accounts::Remove   drop the account's vhosts
//	SSL::installssl    bind a certificate pair to a vhost
//
// Describe returns this list as static descriptors for the panel's hook
// registration, without touching any state:
//
//	[{"category":"Accounts","event":"Create","stage":"post","exectype":"binary","hook":"/usr/local/bin/veloctl hook"}, ...]
//
// # Sequencing
//
// Dispatch processes one event at a time under an internal mutex. Combined
// with the repository's file lock this keeps the backup trail meaningful:
// every backup corresponds to exactly one event.
package hooks
