// Package shell resolves the login shell used to recover the user's
// environment. It maps $SHELL to a known shell type and builds the
// command line that prints the environment of a login session
// (--login -c env for POSIX shells and fish).
package shell
