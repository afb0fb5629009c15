// Package connectors provides DocumentSource implementations. Each connector
// knows how to page through one publisher's daily listing; federalregister
// is the only one today.
package connectors
