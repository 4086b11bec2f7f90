package inventory

// Tracked returns how many number sequences are held in memory
func (n *DocumentNumberer) Tracked() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.last)
}
