// Package testsupport provides shared builders and fakes for package tests:
// temp-dir configurations, ledger stores, scripted synthesis backends, and a
// file-writing audio client.
package testsupport
