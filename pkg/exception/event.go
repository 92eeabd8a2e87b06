package exception

import "errors"

var ErrEventQueueClosed = errors.New("event: queue closed")
