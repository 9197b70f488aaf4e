package server

import "errors"

// Sentinel for failures while starting or serving the control socket.
var ErrServer = errors.New("server error")
