package objectstore

import (
	"bytes"
	"compress/flate"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// ObjectType names the three object kinds the Remote Fetcher and
// Metadata Prefetcher exchange.
type ObjectType string

const (
	TypeCommit  ObjectType = "commit"
	TypeDirtree ObjectType = "dirtree"
	TypeFilez   ObjectType = "filez"
)

// tuple is the generic field-indexed envelope both commit and dirtree
// objects are serialized as: a field count followed by length-prefixed
// fields, each addressable by index. Field 6 of a commit is its root
// tree checksum; field 0 of a dirtree is its file-entry list, mirroring
// the positions those fields occupy in a real commit/dirtree variant.
type tuple [][]byte

func encodeTuple(fields [][]byte) []byte {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(fields)))
	buf.Write(hdr[:])
	for _, f := range fields {
		binary.BigEndian.PutUint32(hdr[:], uint32(len(f)))
		buf.Write(hdr[:])
		buf.Write(f)
	}
	return buf.Bytes()
}

func decodeTuple(data []byte) (tuple, error) {
	if len(data) < 4 {
		return nil, storeerr.New(storeerr.ParseError, "object too short to contain a field count")
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]

	fields := make(tuple, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 4 {
			return nil, storeerr.Newf(storeerr.ParseError, "object truncated reading field %d length", i)
		}
		flen := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint64(len(data)) < uint64(flen) {
			return nil, storeerr.Newf(storeerr.ParseError, "object truncated reading field %d body", i)
		}
		fields = append(fields, data[:flen])
		data = data[flen:]
	}
	return fields, nil
}

func (t tuple) field(i int) ([]byte, error) {
	if i < 0 || i >= len(t) {
		return nil, storeerr.Newf(storeerr.ParseError, "object has no field at index %d", i)
	}
	return t[i], nil
}

// Commit field indices, matching the positions a real commit variant
// would put subject/body/timestamp/root-tree/root-metadata in.
const (
	commitFieldSubject  = 3
	commitFieldBody     = 4
	commitFieldTime     = 5
	commitFieldRootTree = 6
	commitFieldRootMeta = 7
	commitFieldCount    = 8
)

// Commit is a parsed commit object.
type Commit struct {
	Subject      string
	Body         string
	Timestamp    int64
	RootTree     string // checksum of the root dirtree
	RootMetadata string // checksum of the root dirtree's metadata
}

// EncodeCommit serializes c into the wire tuple format.
func EncodeCommit(c Commit) []byte {
	fields := make([][]byte, commitFieldCount)
	fields[commitFieldSubject] = []byte(c.Subject)
	fields[commitFieldBody] = []byte(c.Body)
	var tbuf [8]byte
	binary.BigEndian.PutUint64(tbuf[:], uint64(c.Timestamp))
	fields[commitFieldTime] = tbuf[:]
	fields[commitFieldRootTree] = []byte(c.RootTree)
	fields[commitFieldRootMeta] = []byte(c.RootMetadata)
	for i, f := range fields {
		if f == nil {
			fields[i] = []byte{}
		}
	}
	return encodeTuple(fields)
}

// DecodeCommit parses a commit object, validating its structure and
// extracting the root tree checksum from field index 6.
func DecodeCommit(data []byte) (Commit, error) {
	t, err := decodeTuple(data)
	if err != nil {
		return Commit{}, storeerr.Wrap(err, storeerr.ParseError, "invalid commit object")
	}
	if len(t) < commitFieldCount {
		return Commit{}, storeerr.Newf(storeerr.ParseError, "commit object has %d fields, want at least %d", len(t), commitFieldCount)
	}

	rootTree, err := t.field(commitFieldRootTree)
	if err != nil {
		return Commit{}, err
	}
	rootMeta, err := t.field(commitFieldRootMeta)
	if err != nil {
		return Commit{}, err
	}
	subject, _ := t.field(commitFieldSubject)
	body, _ := t.field(commitFieldBody)
	tsRaw, _ := t.field(commitFieldTime)

	var ts int64
	if len(tsRaw) == 8 {
		ts = int64(binary.BigEndian.Uint64(tsRaw))
	}

	if len(rootTree) != sha256.Size*2 {
		return Commit{}, storeerr.Newf(storeerr.ParseError, "commit root tree checksum has invalid length %d", len(rootTree))
	}

	return Commit{
		Subject:      string(subject),
		Body:         string(body),
		Timestamp:    ts,
		RootTree:     string(rootTree),
		RootMetadata: string(rootMeta),
	}, nil
}

// FileEntry is one file named within a dirtree.
type FileEntry struct {
	Name     string
	Checksum string
}

// DirEntry is one subdirectory named within a dirtree.
type DirEntry struct {
	Name         string
	TreeChecksum string
	MetaChecksum string
}

// Dirtree is a parsed directory-tree object.
type Dirtree struct {
	Files []FileEntry
	Dirs  []DirEntry
}

const (
	dirtreeFieldFiles = 0
	dirtreeFieldDirs  = 1
	dirtreeFieldCount = 2
)

// EncodeDirtree serializes d into the wire tuple format. Files and
// dirs are each flattened as a list of entry tuples inside one field:
// name/checksum for files, name/tree/meta checksums for dirs.
func EncodeDirtree(d Dirtree) []byte {
	fields := make([][]byte, dirtreeFieldCount)
	fields[dirtreeFieldFiles] = encodeEntries(filesToPairs(d.Files))
	fields[dirtreeFieldDirs] = encodeEntries(dirsToPairs(d.Dirs))
	return encodeTuple(fields)
}

// DecodeDirtree parses a dirtree object, validating its structure and
// extracting the file-entries list from field index 0.
func DecodeDirtree(data []byte) (Dirtree, error) {
	t, err := decodeTuple(data)
	if err != nil {
		return Dirtree{}, storeerr.Wrap(err, storeerr.ParseError, "invalid dirtree object")
	}
	if len(t) < dirtreeFieldCount {
		return Dirtree{}, storeerr.Newf(storeerr.ParseError, "dirtree object has %d fields, want at least %d", len(t), dirtreeFieldCount)
	}

	filesRaw, err := t.field(dirtreeFieldFiles)
	if err != nil {
		return Dirtree{}, err
	}
	dirsRaw, err := t.field(dirtreeFieldDirs)
	if err != nil {
		return Dirtree{}, err
	}

	filePairs, err := decodeEntries(filesRaw)
	if err != nil {
		return Dirtree{}, storeerr.Wrap(err, storeerr.ParseError, "invalid dirtree file entries")
	}
	dirPairs, err := decodeEntries(dirsRaw)
	if err != nil {
		return Dirtree{}, storeerr.Wrap(err, storeerr.ParseError, "invalid dirtree dir entries")
	}

	files := make([]FileEntry, 0, len(filePairs))
	for _, p := range filePairs {
		if len(p) != 2 {
			return Dirtree{}, storeerr.New(storeerr.ParseError, "dirtree file entry malformed")
		}
		files = append(files, FileEntry{Name: string(p[0]), Checksum: string(p[1])})
	}

	dirs := make([]DirEntry, 0, len(dirPairs))
	for _, p := range dirPairs {
		if len(p) != 3 {
			return Dirtree{}, storeerr.New(storeerr.ParseError, "dirtree dir entry malformed")
		}
		dirs = append(dirs, DirEntry{Name: string(p[0]), TreeChecksum: string(p[1]), MetaChecksum: string(p[2])})
	}

	return Dirtree{Files: files, Dirs: dirs}, nil
}

func filesToPairs(files []FileEntry) [][][]byte {
	out := make([][][]byte, 0, len(files))
	for _, f := range files {
		out = append(out, [][]byte{[]byte(f.Name), []byte(f.Checksum)})
	}
	return out
}

func dirsToPairs(dirs []DirEntry) [][][]byte {
	out := make([][][]byte, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, [][]byte{[]byte(d.Name), []byte(d.TreeChecksum), []byte(d.MetaChecksum)})
	}
	return out
}

func encodeEntries(entries [][][]byte) []byte {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(entries)))
	buf.Write(hdr[:])
	for _, e := range entries {
		buf.Write(encodeTuple(e))
	}
	return buf.Bytes()
}

func decodeEntries(data []byte) ([][][]byte, error) {
	if len(data) < 4 {
		return nil, storeerr.New(storeerr.ParseError, "entry list too short")
	}
	count := binary.BigEndian.Uint32(data[:4])
	data = data[4:]

	entries := make([][][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		// Each entry is itself a tuple; decodeTuple needs to know how
		// many bytes it consumed, so re-scan its own length prefix.
		if len(data) < 4 {
			return nil, storeerr.Newf(storeerr.ParseError, "entry %d truncated", i)
		}
		fieldCount := binary.BigEndian.Uint32(data[:4])
		cursor := data[4:]
		consumed := 4
		fields := make([][]byte, 0, fieldCount)
		for f := uint32(0); f < fieldCount; f++ {
			if len(cursor) < 4 {
				return nil, storeerr.Newf(storeerr.ParseError, "entry %d field %d truncated", i, f)
			}
			flen := binary.BigEndian.Uint32(cursor[:4])
			cursor = cursor[4:]
			consumed += 4
			if uint64(len(cursor)) < uint64(flen) {
				return nil, storeerr.Newf(storeerr.ParseError, "entry %d field %d body truncated", i, f)
			}
			fields = append(fields, cursor[:flen])
			cursor = cursor[flen:]
			consumed += int(flen)
		}
		entries = append(entries, fields)
		data = data[consumed:]
	}
	return entries, nil
}

// filezHeaderPadding is the fixed 4 bytes of padding between the
// per-file header and the raw-DEFLATE content stream.
const filezHeaderPadding = 4

// EncodeFilez serializes file content into the filez wire layout: a
// 4-byte big-endian header size, that many header bytes, 4 bytes of
// padding, then a raw-DEFLATE stream of content.
func EncodeFilez(header, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(header)))
	buf.Write(hdr[:])
	buf.Write(header)
	buf.Write(make([]byte, filezHeaderPadding))

	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.IOError, "failed to create deflate writer")
	}
	if _, err := w.Write(content); err != nil {
		return nil, storeerr.Wrap(err, storeerr.IOError, "failed to compress file content")
	}
	if err := w.Close(); err != nil {
		return nil, storeerr.Wrap(err, storeerr.IOError, "failed to flush deflate stream")
	}

	return buf.Bytes(), nil
}

// DecodeFilez skips the header and padding and inflates the remainder.
// Rejects the object if header_size + 8 exceeds the total size.
func DecodeFilez(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, storeerr.New(storeerr.ParseError, "filez object too short to contain a header size")
	}
	headerSize := binary.BigEndian.Uint32(data[:4])

	if uint64(headerSize)+8 > uint64(len(data)) {
		return nil, storeerr.Newf(storeerr.ParseError, "filez header_size %d + 8 exceeds object size %d", headerSize, len(data))
	}

	skip := 4 + int(headerSize) + filezHeaderPadding
	r := flate.NewReader(bytes.NewReader(data[skip:]))
	defer r.Close()

	inflated, err := io.ReadAll(r)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.ParseError, "failed to inflate filez content")
	}
	return inflated, nil
}

// Checksum returns the lowercase-hex SHA-256 of an object's canonical
// (wire-format) bytes: the content-address a store names objects by.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
