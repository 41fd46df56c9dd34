// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing sessions, dialogues and scripted model turns.
// They are not intended for production usage.
package testutil
