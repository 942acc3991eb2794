package cbhost

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"circularbuffer/pkg/circbuff"
	"circularbuffer/pkg/repl"

	"github.com/pkg/errors"
)

type handler = func(string, *repl.REPLConfig) error

func (h *Host) Repl() *repl.REPL {
	r := repl.NewRepl()
	r.AddCommand("ls", h.lsHandler(), "Lists all buffers. usage: ls")
	r.AddCommand("links", h.linksHandler(), "Lists all links. usage: links")
	r.AddCommand("info", h.infoHandler(), "Shows one buffer. usage: info <buf>")
	r.AddCommand("w", h.writeHandler(), "Writes raw bytes. usage: w <buf> <text>")
	r.AddCommand("r", h.readHandler(), "Reads up to n bytes. usage: r <buf> <n>")
	r.AddCommand("p", h.peekHandler(), "Peeks at up to n bytes. usage: p <buf> <n>")
	r.AddCommand("d", h.dropHandler(), "Drops up to n bytes. usage: d <buf> <n>")
	r.AddCommand("at", h.atHandler(), "Shows the byte at an index. usage: at <buf> <i>")
	r.AddCommand("sl", h.sliceHandler(), "Shows a range of bytes without consuming them. usage: sl <buf> <start> <stop>")
	r.AddCommand("clear", h.clearHandler(), "Empties a buffer. usage: clear <buf>")
	r.AddCommand("wm", h.writeMsgHandler(), "Writes a message. usage: wm <buf> <text>")
	r.AddCommand("rm", h.readMsgHandler(), "Reads a message. usage: rm <buf>")
	r.AddCommand("pm", h.peekMsgHandler(), "Peeks at a message. usage: pm <buf>")
	r.AddCommand("rmi", h.readMsgIntoHandler(), "Reads a message into a fixed-size buffer. usage: rmi <buf> <size>")
	r.AddCommand("dm", h.dropMsgHandler(), "Drops a message. usage: dm <buf>")
	r.AddCommand("send", h.sendHandler(), "Sends all complete messages over a link. usage: send <link>")
	r.AddCommand("pump", h.pumpHandler(), "Retries backlogged messages of a link. usage: pump <link>")
	return r
}

func (h *Host) lsHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: ls")
		}
		_, err := io.WriteString(config.Writer, "Name\tCap\tUsed\tFree\tMsgs\tState\n")
		if err != nil {
			return fmt.Errorf("lsHandler cannot write the header")
		}
		for _, info := range h.GetBuffersString() {
			if _, err := io.WriteString(config.Writer, info); err != nil {
				return fmt.Errorf("lsHandler cannot write buffers")
			}
		}
		return nil
	}
}

func (h *Host) linksHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		if len(strings.Fields(input)) != 1 {
			return fmt.Errorf("usage: links")
		}
		_, err := io.WriteString(config.Writer, "Name\tVIP\tUDP\tPeer\tPeerUDP\tSend\tRecv\tBacklog\n")
		if err != nil {
			return fmt.Errorf("linksHandler cannot write the header")
		}
		for _, info := range h.GetLinksString() {
			if _, err := io.WriteString(config.Writer, info); err != nil {
				return fmt.Errorf("linksHandler cannot write links")
			}
		}
		return nil
	}
}

func (h *Host) infoHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: info <buf>")
		}
		return h.WithBuffer(args[1], func(cb *circbuff.CircBuff) error {
			_, err := io.WriteString(config.Writer, getInfoString(args[1], cb))
			return err
		})
	}
}

func (h *Host) writeHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		name, text, err := bufferAndText(input, "usage: w <buf> <text>")
		if err != nil {
			return err
		}
		return h.WithBuffer(name, func(cb *circbuff.CircBuff) error {
			n := cb.Write([]byte(text))
			_, err := fmt.Fprintf(config.Writer, "Wrote %d of %d bytes\n", n, len(text))
			return err
		})
	}
}

func (h *Host) readHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		name, n, err := bufferAndCount(input, "usage: r <buf> <n>")
		if err != nil {
			return err
		}
		return h.WithBuffer(name, func(cb *circbuff.CircBuff) error {
			data := cb.Read(n)
			_, err := fmt.Fprintf(config.Writer, "Read %d bytes: %q\n", len(data), data)
			return err
		})
	}
}

func (h *Host) peekHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		name, n, err := bufferAndCount(input, "usage: p <buf> <n>")
		if err != nil {
			return err
		}
		return h.WithBuffer(name, func(cb *circbuff.CircBuff) error {
			data := cb.Peek(n)
			_, err := fmt.Fprintf(config.Writer, "Peeked %d bytes: %q\n", len(data), data)
			return err
		})
	}
}

func (h *Host) dropHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		name, n, err := bufferAndCount(input, "usage: d <buf> <n>")
		if err != nil {
			return err
		}
		return h.WithBuffer(name, func(cb *circbuff.CircBuff) error {
			_, err := fmt.Fprintf(config.Writer, "Dropped %d bytes\n", cb.Drop(n))
			return err
		})
	}
}

func (h *Host) atHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 3 {
			return fmt.Errorf("usage: at <buf> <i>")
		}
		i, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		return h.WithBuffer(args[1], func(cb *circbuff.CircBuff) error {
			b, err := cb.At(i)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(config.Writer, "%d: %q\n", i, b)
			return err
		})
	}
}

func (h *Host) sliceHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 4 {
			return fmt.Errorf("usage: sl <buf> <start> <stop>")
		}
		start, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		stop, err := strconv.Atoi(args[3])
		if err != nil {
			return err
		}
		return h.WithBuffer(args[1], func(cb *circbuff.CircBuff) error {
			data, err := cb.Slice(start, stop)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(config.Writer, "[%d:%d]: %q\n", start, stop, data)
			return err
		})
	}
}

func (h *Host) clearHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: clear <buf>")
		}
		return h.WithBuffer(args[1], func(cb *circbuff.CircBuff) error {
			cb.Clear()
			return nil
		})
	}
}

func (h *Host) writeMsgHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		name, text, err := bufferAndText(input, "usage: wm <buf> <text>")
		if err != nil {
			return err
		}
		return h.WithBuffer(name, func(cb *circbuff.CircBuff) error {
			n, err := cb.WriteMsg([]byte(text))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(config.Writer, "Wrote message of %d bytes\n", n)
			return err
		})
	}
}

func (h *Host) readMsgHandler() handler {
	return h.msgHandler("usage: rm <buf>", "Read", (*circbuff.CircBuff).ReadMsg)
}

func (h *Host) peekMsgHandler() handler {
	return h.msgHandler("usage: pm <buf>", "Peeked", (*circbuff.CircBuff).PeekMsg)
}

func (h *Host) msgHandler(usage string, verb string, op func(*circbuff.CircBuff) ([]byte, bool)) handler {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return errors.New(usage)
		}
		return h.WithBuffer(args[1], func(cb *circbuff.CircBuff) error {
			msg, ok := op(cb)
			var err error
			if ok {
				_, err = fmt.Fprintf(config.Writer, "%s message: %q\n", verb, msg)
			} else {
				_, err = io.WriteString(config.Writer, "No message available\n")
			}
			return err
		})
	}
}

func (h *Host) readMsgIntoHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		name, size, err := bufferAndCount(input, "usage: rmi <buf> <size>")
		if err != nil {
			return err
		}
		if size < 0 {
			return fmt.Errorf("size must not be negative")
		}
		return h.WithBuffer(name, func(cb *circbuff.CircBuff) error {
			// no message can be longer than the buffer holding it
			if size > cb.Capacity() {
				return errors.Errorf("size %d exceeds the capacity of %s (%d)", size, name, cb.Capacity())
			}
			dst := make([]byte, size)
			n, ok, err := cb.ReadMsgInto(dst)
			if err != nil {
				return err
			}
			if !ok {
				_, err = io.WriteString(config.Writer, "No message available\n")
				return err
			}
			_, err = fmt.Fprintf(config.Writer, "Read %d bytes into a %d-byte buffer: %q\n", n, size, dst[:n])
			return err
		})
	}
}

func (h *Host) dropMsgHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: dm <buf>")
		}
		return h.WithBuffer(args[1], func(cb *circbuff.CircBuff) error {
			var err error
			if cb.DropMsg() {
				_, err = io.WriteString(config.Writer, "Dropped one message\n")
			} else {
				_, err = io.WriteString(config.Writer, "No message available\n")
			}
			return err
		})
	}
}

func (h *Host) sendHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: send <link>")
		}
		l, err := h.link(args[1])
		if err != nil {
			return err
		}
		sent, err := l.Flush()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(config.Writer, "Sent %d messages\n", sent)
		return err
	}
}

func (h *Host) pumpHandler() handler {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Fields(input)
		if len(args) != 2 {
			return fmt.Errorf("usage: pump <link>")
		}
		l, err := h.link(args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(config.Writer, "Moved %d messages, %d still waiting\n", l.Pump(), l.BacklogLen())
		return err
	}
}

// Split "<cmd> <buf> <text...>"; the text keeps its inner spaces.
func bufferAndText(input string, usage string) (string, string, error) {
	args := strings.SplitN(strings.TrimSpace(input), " ", 3)
	if len(args) < 3 {
		return "", "", errors.New(usage)
	}
	return args[1], args[2], nil
}

func bufferAndCount(input string, usage string) (string, int, error) {
	args := strings.Fields(input)
	if len(args) != 3 {
		return "", 0, errors.New(usage)
	}
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return "", 0, err
	}
	return args[1], n, nil
}
