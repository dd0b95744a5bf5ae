// Package logger is the diagnostic logging setup for the interpreter.
//
// Diagnostic logs never go to the user's terminal, everything the user sees is
// written by the shell itself.
package logger
