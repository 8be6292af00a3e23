// Package testing provides shared test constants for go-curl packages.
//
// The echoserver subpackage runs a disposable HTTP server that echoes
// requests back, used by integration tests of the client and the CLI:
//
//	import (
//		testconsts "github.com/gaborage/go-curl/testing"
//		"github.com/gaborage/go-curl/testing/echoserver"
//	)
package testing
