/*
Package session implements the per-session variable store used by the renderer and the
pool that owns those stores.

A RenderContext holds the list and scalar variables of one render session plus its
sequence counter. Reads of undeclared variables never abort a render: they are reported
and come back as diagnostic values that the renderer embeds into the output. Only caller
contract breaches are returned as errors.

The Manager creates, tracks and reaps RenderContexts; the Sweeper drives reaping on a
timer.
*/
package session
