// Package domain defines the core data models and interfaces shared across
// the secure-transport core. It contains plain types (wire/state) and
// contracts (interfaces) only; concrete behavior lives in sibling packages.
package domain
