package session

import (
	"encoding/base64"
	"io"
	"time"

	"github.com/opd-ai/leo/storage"
	"github.com/opd-ai/leo/wire"
)

// handlePutBegin registers upload state for path and truncate-creates the
// target file. Per the protocol's resolution of the PUT_BEGIN open
// question, failures here are logged but not replied to, and no upload
// state is registered: a subsequent PUT_CHUNK for the path is answered with
// UPLOAD_NOT_INITIALIZED, while PUT_END still replies PUT_OK.
func (s *session) handlePutBegin(m *wire.PutBegin) {
	start := time.Now()
	if err := s.storage.WriteWhole(m.Path, nil); err != nil {
		s.log.WithError(err).WithField("path", m.Path).Error("PUT_BEGIN failed")
		s.metrics.CommandDuration("PUT_BEGIN", "error", time.Since(start))
		return
	}
	s.uploads[m.Path] = &uploadState{declaredSize: m.Size}
	s.metrics.CommandDuration("PUT_BEGIN", "ok", time.Since(start))
}

func (s *session) handlePutChunk(m *wire.PutChunk) {
	start := time.Now()
	up, ok := s.uploads[m.Path]
	if !ok {
		s.sendError(wire.ErrUploadNotInitialized, "upload not initialized")
		s.metrics.CommandDuration("PUT_CHUNK", "error", time.Since(start))
		return
	}

	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		s.sendError(wire.ErrInvalidMessage, "chunk data is not valid base64")
		s.metrics.CommandDuration("PUT_CHUNK", "error", time.Since(start))
		return
	}

	if err := s.storage.WriteChunk(m.Path, m.Offset, data); err != nil {
		s.log.WithError(err).WithField("path", m.Path).Warn("PUT_CHUNK failed")
		s.sendError(storage.Classify(err), "write failed")
		s.metrics.CommandDuration("PUT_CHUNK", "error", time.Since(start))
		return
	}

	up.received += uint64(len(data))
	s.metrics.BytesUploaded(len(data))
	s.metrics.CommandDuration("PUT_CHUNK", "ok", time.Since(start))
}

func (s *session) handlePutEnd(m *wire.PutEnd) {
	start := time.Now()
	delete(s.uploads, m.Path)
	s.send(wire.NewPutOK(m.Path))
	s.metrics.CommandDuration("PUT_END", "ok", time.Since(start))
}

func (s *session) handleGetBegin(m *wire.GetBegin) {
	start := time.Now()
	size, err := s.storage.FileSize(m.Path)
	if err != nil {
		s.sendError(storage.Classify(err), "file not available")
		s.metrics.CommandDuration("GET_BEGIN", "error", time.Since(start))
		return
	}

	if !s.send(wire.NewGetMeta(m.Path, size)) {
		s.metrics.CommandDuration("GET_BEGIN", "error", time.Since(start))
		return
	}

	buf := make([]byte, getChunkSize)
	var offset uint64
	for offset < size {
		n, rerr := s.storage.ReadChunk(m.Path, offset, buf)
		if n > 0 {
			chunk := base64.StdEncoding.EncodeToString(buf[:n])
			if !s.send(wire.NewGetChunk(m.Path, offset, chunk)) {
				s.metrics.CommandDuration("GET_BEGIN", "error", time.Since(start))
				return
			}
			s.metrics.BytesDownloaded(n)
			offset += uint64(n)
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			s.log.WithError(rerr).WithField("path", m.Path).Warn("GET read failed mid-stream")
			s.sendError(storage.Classify(rerr), "read failed")
			s.metrics.CommandDuration("GET_BEGIN", "error", time.Since(start))
			return
		}
	}

	s.send(wire.NewGetEnd(m.Path))
	s.metrics.CommandDuration("GET_BEGIN", "ok", time.Since(start))
}

func (s *session) handleList(m *wire.List) {
	start := time.Now()
	items, err := s.storage.List(m.Path)
	if err != nil {
		s.sendError(storage.Classify(err), "list failed")
		s.metrics.CommandDuration("LIST", "error", time.Since(start))
		return
	}
	s.send(wire.NewListResult(m.Path, items))
	s.metrics.CommandDuration("LIST", "ok", time.Since(start))
}

func (s *session) handleDel(m *wire.Del) {
	start := time.Now()
	if err := s.storage.DeleteFile(m.Path); err != nil {
		code := storage.Classify(err)
		s.log.WithError(err).WithField("path", m.Path).Debug("DEL failed")
		s.send(wire.NewDelError(m.Path, code, deleteErrorMessage(code)))
		s.metrics.CommandDuration("DEL", "error", time.Since(start))
		return
	}
	s.send(wire.NewDelOK(m.Path))
	s.metrics.CommandDuration("DEL", "ok", time.Since(start))
}

func (s *session) handleInfo(m *wire.Info) {
	start := time.Now()
	s.send(wire.NewInfoResult(s.info.Version, s.info.ProtocolVersion, s.info.Capabilities, s.info.StorageRoot, s.info.MaxUploadSize))
	s.metrics.CommandDuration("INFO", "ok", time.Since(start))
}

func deleteErrorMessage(code wire.ErrorCode) string {
	switch code {
	case wire.ErrInvalidPath:
		return "path escapes storage root"
	case wire.ErrFileNotFound:
		return "file not found"
	case wire.ErrNotAFile:
		return "target is not a regular file"
	case wire.ErrPermissionDenied:
		return "permission denied"
	default:
		return "delete failed"
	}
}
