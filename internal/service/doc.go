// Package service implements business logic for the Motorpool application.
//
// CarService coordinates between the HTTP handlers and the repository
// layer: it validates cars and partial updates, maps missing rows to
// "not found" errors, and handles fleet import/export via codec adapters.
//
// All mutations publish events on the EventBus so connected clients
// receive live updates over Server-Sent Events.
package service
