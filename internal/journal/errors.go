package journal

type errorString string

func (e errorString) Error() string { return string(e) }

const ErrClosed = errorString("journal: closed")
