package nfsd3

// entryOverhead estimates the XDR bytes one READDIR entry3 consumes
// beyond its name, used to honor the client's maxcount/dircount
// without ever assembling an oversized reply only to discard it
// (§4.6 READDIR/READDIRPLUS: "if not even one entry fits, return
// NFS3ERR_TOOSMALL").
const entryOverhead = 4 + 8 + 8 + 4 // entry-follows flag + fileid + cookie + name length

// entryPlusOverhead additionally budgets READDIRPLUS's per-entry
// post_op_attr and post_op_fh3.
const entryPlusOverhead = entryOverhead + 4 + 84 + 4 + 20

// handleReaddir implements READDIR (§4.6 READDIR) as a name/fileid-only
// projection of the same ReadDir capability READDIRPLUS uses, per the
// resolution of the dropped-READDIR open question: the wire format is
// cheaper, not the underlying walk.
func handleReaddir(cc *ConnContext, call *Call) ([]byte, error) {
	return readdirCommon(cc, call, false)
}

// handleReaddirplus implements READDIRPLUS (§4.6 READDIRPLUS), paging
// by opaque cookie and invalidating the page on cookieverf mismatch.
func handleReaddirplus(cc *ConnContext, call *Call) ([]byte, error) {
	return readdirCommon(cc, call, true)
}

func readdirCommon(cc *ConnContext, call *Call, plus bool) ([]byte, error) {
	dir, status, err := resolveHandle(cc, call.Body)
	if err != nil {
		return nil, err
	}
	e := NewEncoder()
	if status != NFS3_OK {
		e.PutUint32(status)
		putPostOpAttrs(e, Attrs{}, false)
		return e.Bytes(), nil
	}

	cookie, err := call.Body.GetUint64()
	if err != nil {
		return nil, err
	}
	clientVerf, err := call.Body.GetFixedOpaque(8)
	if err != nil {
		return nil, err
	}
	var maxCount uint32
	if plus {
		if _, err := call.Body.GetUint32(); err != nil { // dircount, advisory only
			return nil, err
		}
		if maxCount, err = call.Body.GetUint32(); err != nil {
			return nil, err
		}
	} else {
		if maxCount, err = call.Body.GetUint32(); err != nil {
			return nil, err
		}
	}

	overhead := entryOverhead
	if plus {
		overhead = entryPlusOverhead
	}
	budget := int(maxCount) - 4 /* status */ - 88 /* dir post_op_attr */ - 8 /* cookieverf */ - 8 /* end-of-entries flag + eof */
	if budget < overhead {
		e.PutUint32(NFS3ERR_TOOSMALL)
		dirAttrs, ok := safeAttrs(cc, dir)
		putPostOpAttrs(e, dirAttrs, ok)
		return e.Bytes(), nil
	}
	maxEntries := budget / overhead

	if cookie != 0 {
		// A nonzero cookie must have been issued alongside the
		// directory's current cookieverf, or the listing it continues
		// may no longer be valid (§3 Directory cookie, §4.6: "cookies
		// from a previous cookieverf must be rejected with
		// NFS3ERR_BAD_COOKIE"). Every directory's cookieverf is
		// nonzero from its first listing onward, so this comparison
		// runs unconditionally rather than only when the client
		// happens to present a nonzero verifier.
		_, _, serverVerf, verr := cc.Server.vfs.ReadDir(cc.Context(), dir, 0, 1)
		if verr != nil {
			e.PutUint32(mapVFSError(verr))
			dirAttrs, ok := safeAttrs(cc, dir)
			putPostOpAttrs(e, dirAttrs, ok)
			return e.Bytes(), nil
		}
		var cv [8]byte
		copy(cv[:], clientVerf)
		if cv != serverVerf {
			e.PutUint32(NFS3ERR_BAD_COOKIE)
			dirAttrs, ok := safeAttrs(cc, dir)
			putPostOpAttrs(e, dirAttrs, ok)
			return e.Bytes(), nil
		}
	}

	entries, eof, cookieverf, verr := cc.Server.vfs.ReadDir(cc.Context(), dir, cookie, maxEntries)
	dirAttrs, attrsOK := safeAttrs(cc, dir)
	if verr != nil {
		e.PutUint32(mapVFSError(verr))
		putPostOpAttrs(e, dirAttrs, attrsOK)
		return e.Bytes(), nil
	}

	// Names are only known once the entries are in hand: drop trailing
	// entries whose padded names would push the reply past maxcount.
	used := 0
	for i, ent := range entries {
		used += overhead + (len(ent.Name)+3)&^3
		if used > budget {
			if i == 0 {
				e.PutUint32(NFS3ERR_TOOSMALL)
				putPostOpAttrs(e, dirAttrs, attrsOK)
				return e.Bytes(), nil
			}
			entries, eof = entries[:i], false
			break
		}
	}

	e.PutUint32(NFS3_OK)
	putPostOpAttrs(e, dirAttrs, attrsOK)
	e.PutFixedOpaque(cookieverf[:])

	for _, ent := range entries {
		e.PutOptionalPresent(true) // another entry follows
		e.PutUint64(uint64(ent.Id))
		e.PutString(ent.Name)
		e.PutUint64(ent.Cookie)
		if plus {
			childAttrs, ok := safeAttrs(cc, ent.Id)
			putPostOpAttrs(e, childAttrs, ok)
			e.PutOptionalPresent(ok)
			if ok {
				putFileHandle(e, FileHandle{Generation: cc.Server.generation, Id: ent.Id})
			}
		}
	}
	e.PutOptionalPresent(false) // no more entries
	e.PutBool(eof)
	return e.Bytes(), nil
}
