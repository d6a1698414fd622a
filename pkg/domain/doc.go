// Package domain contains the core types of the guided-conversation engine:
// dialogue nodes, transcript turns, conversation state, lifecycle events and
// the lead payload. It has no behavior beyond small accessors and carries no
// dependencies, so every other package (engine, adapters, hosts) can share it.
package domain
