package smx

// pendingCommand is one queued outbound command: the frames SendCommand
// already split it into, plus what to do once the device says it's
// finished executing it. Grounded in SMXDeviceConnection::PendingCommand,
// collapsed to a single completion closure taking no response argument:
// the original's m_pComplete is called with no payload too, replies are
// delivered separately through the reassembled read-buffer queue.
type pendingCommand struct {
	frames       [][]byte
	isDeviceInfo bool
	onComplete   func()
}

// pendingQueue is the per-connection FIFO of commands waiting to be
// written, plus the one command currently in flight. SMX only ever
// allows one in-flight command per device, so unlike the teacher's
// waithandler (which resumes up to 16 concurrent RF waiters by
// sequence number) this is a plain queue with a single current slot.
type pendingQueue struct {
	queue   []*pendingCommand
	current *pendingCommand
}

func (q *pendingQueue) push(cmd *pendingCommand) {
	q.queue = append(q.queue, cmd)
}

// next promotes the head of the queue into current if nothing is
// already in flight, returning the frames to write. It returns nil if
// a command is already in flight or the queue is empty.
func (q *pendingQueue) next() [][]byte {
	if q.current != nil || len(q.queue) == 0 {
		return nil
	}
	q.current = q.queue[0]
	q.queue = q.queue[1:]
	return q.current.frames
}

// finish completes whatever command is in flight and frees the slot.
func (q *pendingQueue) finish() {
	cur := q.current
	q.current = nil
	if cur != nil && cur.onComplete != nil {
		cur.onComplete()
	}
}

// currentIsDeviceInfo mirrors HandleUsbPacket's check that a
// PACKET_FLAG_DEVICE_INFO reply is discarded unless we're the one
// who's currently waiting for it (another application may have asked
// the device for the same thing).
func (q *pendingQueue) currentIsDeviceInfo() bool {
	return q.current != nil && q.current.isDeviceInfo
}

func (q *pendingQueue) reset() {
	q.queue = nil
	q.current = nil
}
