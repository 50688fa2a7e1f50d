// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary lifecycle (load configuration,
// connect, bind regions, serve, shut down), decoupled from any specific
// entrypoint like a CLI.
package app
