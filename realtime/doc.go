// Package realtime is the in-process side of the dashboard's push channel.
// It carries typed invalidation events from domain writers to UI transports
// and ties publication to cache invalidation, so subscribers that refetch
// on receipt always observe fresh data. The network transports themselves
// (SSE, WebSocket) live outside this module.
package realtime
