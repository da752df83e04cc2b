// Package command builds the heapcache command line: the root command, its
// flags and the replay and demo subcommands.
package command
