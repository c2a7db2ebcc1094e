/*
Package terminal turns terminal requests into launch plans and live sessions.

# Pipeline

A Request is either an interactive shell or a task. Provisioner.Plan resolves
it in a fixed order:

 1. Working directory: the request's directory or task cwd, else the active
    workspace member's root.
 2. Settings: the member-scoped snapshot when the directory belongs to a
    member, the global one otherwise.
 3. Virtual environment and inherited environment, looked up concurrently.
    The Locator tries the member's Python toolchain, then the policy's
    candidate directories in the workspace index, then the filesystem.
 4. Environment: inherited, then settings env, then task env.
 5. Shell: local plans run the program directly; remote plans run the
    transport with a synthesized "sh -c" command line that carries the
    directory, the environment and the venv PATH prefix.

Provisioner.Provision launches the plan through a Sink, registers the handle
and types the venv activation command into shells.

# Remote command lines

	cd "$HOME/src/app"; FOO='a b' PATH=/srv/venv/bin:$PATH  pytest -k 'not slow'

Tokens are quoted with package shell. An env entry or argument that cannot be
quoted is dropped; a command line that cannot be quoted fails the request.

# Registry

Registry holds weak references. A handle disappears when it is released, when
its session ends, or when nothing else references it.
*/
package terminal
