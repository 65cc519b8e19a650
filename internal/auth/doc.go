// Package auth holds the greeter's local credential checks and the bearer
// tokens the UI bridge hands to the UI shell.
//
// Password checks read the host shadow file through hostfs and fall back to
// su(1) behind a pty when the file is unreadable or the hash format is not
// supported. They only back the --test daemon; under LightDM the daemon
// owns PAM.
package auth
