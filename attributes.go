package nfsd3

// ACCESS3 bit values (RFC 1813 §3.3.4), returned as the subset of the
// requested mask the VFS's attributes allow (§4.6 ACCESS).
const (
	Access3Read    = 0x0001
	Access3Lookup  = 0x0002
	Access3Modify  = 0x0004
	Access3Extend  = 0x0008
	Access3Delete  = 0x0010
	Access3Execute = 0x0020
)

// putAttrs XDR-encodes fattr3.
func putAttrs(e *Encoder, a Attrs) {
	e.PutUint32(uint32(a.Type))
	e.PutUint32(a.Mode)
	e.PutUint32(a.Nlink)
	e.PutUint32(a.Uid)
	e.PutUint32(a.Gid)
	e.PutUint64(a.Size)
	e.PutUint64(a.Used)
	e.PutUint32(a.RdevMajor)
	e.PutUint32(a.RdevMinor)
	e.PutUint64(a.Fsid)
	e.PutUint64(uint64(a.FileId))
	putTimespec(e, a.Atime)
	putTimespec(e, a.Mtime)
	putTimespec(e, a.Ctime)
}

func putTimespec(e *Encoder, t Timespec) {
	e.PutUint32(t.Seconds)
	e.PutUint32(t.Nseconds)
}

func getTimespec(d *Decoder) (Timespec, error) {
	sec, err := d.GetUint32()
	if err != nil {
		return Timespec{}, err
	}
	nsec, err := d.GetUint32()
	if err != nil {
		return Timespec{}, err
	}
	return Timespec{Seconds: sec, Nseconds: nsec}, nil
}

// putPostOpAttrs encodes a post_op_attr: present flag then fattr3 when
// present. Callers pass ok=false when attributes could not be cheaply
// obtained (§7: "reply still carries any post-op attributes the
// server can cheaply supply").
func putPostOpAttrs(e *Encoder, a Attrs, ok bool) {
	e.PutBool(ok)
	if ok {
		putAttrs(e, a)
	}
}

// putPreOpAttrs encodes a pre_op_attr: present flag then the
// size/mtime/ctime triple wcc_data needs to detect a racing change.
func putPreOpAttrs(e *Encoder, a Attrs, ok bool) {
	e.PutBool(ok)
	if ok {
		e.PutUint64(a.Size)
		putTimespec(e, a.Mtime)
		putTimespec(e, a.Ctime)
	}
}

// putWCCData encodes wcc_data: pre-op then post-op attributes (§3).
func putWCCData(e *Encoder, pre Attrs, preOK bool, post Attrs, postOK bool) {
	putPreOpAttrs(e, pre, preOK)
	putPostOpAttrs(e, post, postOK)
}

// getSetAttrs XDR-decodes sattr3.
func getSetAttrs(d *Decoder) (SetAttrs, error) {
	var sa SetAttrs

	setMode, err := d.GetBool()
	if err != nil {
		return sa, err
	}
	if setMode {
		sa.Mode = SetToValue
		if sa.ModeValue, err = d.GetUint32(); err != nil {
			return sa, err
		}
	}

	setUid, err := d.GetBool()
	if err != nil {
		return sa, err
	}
	if setUid {
		sa.Uid = SetToValue
		if sa.UidValue, err = d.GetUint32(); err != nil {
			return sa, err
		}
	}

	setGid, err := d.GetBool()
	if err != nil {
		return sa, err
	}
	if setGid {
		sa.Gid = SetToValue
		if sa.GidValue, err = d.GetUint32(); err != nil {
			return sa, err
		}
	}

	setSize, err := d.GetBool()
	if err != nil {
		return sa, err
	}
	if setSize {
		sa.Size = SetToValue
		if sa.SizeValue, err = d.GetUint64(); err != nil {
			return sa, err
		}
	}

	atimeHow, err := d.GetUint32()
	if err != nil {
		return sa, err
	}
	switch atimeHow {
	case 1:
		sa.Atime = SetToServerTime
	case 2:
		sa.Atime = SetToClientTime
		if sa.AtimeValue, err = getTimespec(d); err != nil {
			return sa, err
		}
	}

	mtimeHow, err := d.GetUint32()
	if err != nil {
		return sa, err
	}
	switch mtimeHow {
	case 1:
		sa.Mtime = SetToServerTime
	case 2:
		sa.Mtime = SetToClientTime
		if sa.MtimeValue, err = getTimespec(d); err != nil {
			return sa, err
		}
	}

	return sa, nil
}

// getSattrGuard decodes SETATTR's optional ctime precondition
// (sattrguard3).
func getSattrGuard(d *Decoder) (*Timespec, error) {
	present, err := d.GetOptionalPresent()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	ts, err := getTimespec(d)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
