// Package subcmd has the implementation of each sub-command supported by the
// airgap binary.
package subcmd
