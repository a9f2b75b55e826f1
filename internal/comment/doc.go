// Package comment is the entity-store collaborator behind the live-update
// and export subsystems: users, posts and threaded comments, with the two
// capabilities the core depends on — resolving a resource key to a living
// entity and streaming a filtered comment history as lazy records.
//
// Comments form a tree through their parent reference. The tree's internals
// stay private to the store; the rest of the system only sees the IsLeaf
// capability, which gates mutations: a comment with children can be neither
// updated nor deleted. That check runs upstream of any broadcast, so an
// update event is only ever published for a mutation that actually happened.
package comment
