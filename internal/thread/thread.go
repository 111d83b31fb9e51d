// Package thread turns getPostThread reply trees into display lists.
package thread

import "sequoia-server/internal/atproto"

// Entry is one comment in a flattened thread.
// HasMoreReplies drives the connector line drawn below the avatar.
type Entry struct {
	Post           *atproto.PostView
	HasMoreReplies bool
}

// Flatten lists node and its post replies depth-first, parents before
// children, siblings in their given order. Non-post nodes are skipped along
// with everything beneath them.
func Flatten(node *atproto.ThreadNode) []Entry {
	if !node.IsPost() {
		return nil
	}
	return appendFlat(nil, node)
}

func appendFlat(out []Entry, node *atproto.ThreadNode) []Entry {
	replies := node.PostReplies()
	out = append(out, Entry{Post: node.Post, HasMoreReplies: len(replies) > 0})
	for _, r := range replies {
		out = appendFlat(out, r)
	}
	return out
}

// CountComments counts every post node in replies and below them.
func CountComments(replies []*atproto.ThreadNode) int {
	count := 0
	for _, r := range replies {
		if !r.IsPost() {
			continue
		}
		count += 1 + CountComments(r.Replies)
	}
	return count
}
