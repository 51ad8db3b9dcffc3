package debugger

import "github.com/gostored/libstored/transport"

// Session binds a Debugger to a transport.Pipe, enforcing the §5 ordering
// guarantee that a request's response is produced strictly before the
// next request is dispatched: Poll drains whatever the pipe decoded this
// tick and replies to each request in turn before returning.
type Session struct {
	dbg  *Debugger
	pipe *transport.Pipe
}

func NewSession(dbg *Debugger, pipe *transport.Pipe) *Session {
	return &Session{dbg: dbg, pipe: pipe}
}

// Poll drives one iteration of the cooperative loop (§5): read whatever
// arrived, dispatch each complete request in order, and write back each
// response before considering the next request.
func (s *Session) Poll() error {
	msgs, err := s.pipe.Poll()
	if err != nil {
		return err
	}
	for _, req := range msgs {
		resp := s.dbg.Dispatch(req)
		if werr := s.pipe.Send(resp); werr != nil {
			return werr
		}
	}
	return nil
}
