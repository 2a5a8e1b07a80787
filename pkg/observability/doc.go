/*
Package observability provides monitoring for the render-session pool.

It exposes prometheus metrics for pool membership and soft faults, and wires them into
the session package through Manager hooks and a counting Reporter.
*/
package observability
