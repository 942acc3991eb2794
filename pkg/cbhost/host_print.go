package cbhost

import (
	"fmt"
	"sort"

	"circularbuffer/pkg/circbuff"
	"circularbuffer/pkg/framelink"
)

// List (name, capacity, used, free, messages, state) as strings
func (h *Host) GetBuffersString() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	res := make([]string, 0, len(h.Buffers))
	for _, name := range sortedKeys(h.Buffers) {
		cb := h.Buffers[name]
		res = append(res, fmt.Sprintf("%s\t%d\t%d\t%d\t%d\t%s\n",
			name, cb.Capacity(), cb.UsedSpace(), cb.FreeSpace(), cb.MsgCount(), cb.State()))
	}
	return res
}

// List (name, local vip, udp, peer vip, peer udp, send, recv, backlog) as strings
func (h *Host) GetLinksString() []string {
	res := make([]string, 0, len(h.Links))
	for _, name := range sortedKeys(h.Links) {
		l := h.Links[name]
		cfg := l.Config()
		res = append(res, fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			name, cfg.LocalVIP, getLocalAddrString(l), cfg.PeerVIP, cfg.PeerAddr,
			cfg.SendBuffer, cfg.RecvBuffer, l.BacklogLen()))
	}
	return res
}

/**************************** helper funcs ****************************/

func getInfoString(name string, cb *circbuff.CircBuff) string {
	next := "none"
	if n, ok := cb.NextMsgLen(); ok {
		next = fmt.Sprintf("%d bytes", n)
	}
	return fmt.Sprintf("%s: %v state=%s msgs=%d next=%s\n", name, cb, cb.State(), cb.MsgCount(), next)
}

func getLocalAddrString(l *framelink.Link) string {
	addr := l.LocalAddr()
	if !addr.IsValid() {
		return l.Config().BindAddr.String()
	}
	return addr.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
