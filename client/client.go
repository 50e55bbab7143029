// Package client talks to the HTTP control API of an IPFS daemon.
//
// Raw sends the commands and replays them on transient gateway errors,
// Reachable only checks that the API port accepts connections.
package client
