// Command termplan prints the launch plan the provisioner would use, without
// starting a terminal. It reads the same environment as the server.
//
// Usage:
//
//	# Shell in the active member
//	termplan -workspace $HOME/src/app
//
//	# Task with arguments and extra environment
//	termplan -workspace $HOME/src/app -env DEBUG=1 -- pytest -x tests/
//
//	# What a remote task would run over ssh
//	termplan -ssh-host build-box -workspace /srv/app -- make test
package main
