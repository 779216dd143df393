package record

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// On-disk log layout: <base>/header.json, <base>/index.bin and
// <base>/frames/chunk_NNNN.bin holding length-prefixed JSON frames.

// ChunkSize is the number of frames per chunk file.
const ChunkSize = 1000

// LogHeader contains metadata about a recorded log.
type LogHeader struct {
	Version     string `json:"version"`
	SessionID   string `json:"session_id"`
	CreatedNs   int64  `json:"created_ns"`
	TotalFrames uint64 `json:"total_frames"`
	StartNs     int64  `json:"start_ns"`
	EndNs       int64  `json:"end_ns"`
}

// indexEntry locates one frame inside the chunk files.
type indexEntry struct {
	FrameID     uint64
	TimestampNs int64
	ChunkID     uint32
	Offset      uint32
}

// LogWriter streams frames into a chunked log directory.
type LogWriter struct {
	basePath string

	header       LogHeader
	index        []indexEntry
	currentChunk int
	chunkFile    *os.File
	chunkOffset  uint32

	frameCount uint64
	startNs    int64
	endNs      int64
	closed     bool
}

// NewLogWriter creates the directory structure for a new recording log.
func NewLogWriter(basePath, sessionID string) (*LogWriter, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "frames"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &LogWriter{
		basePath:     basePath,
		currentChunk: -1,
		index:        make([]indexEntry, 0),
		header: LogHeader{
			Version:   "1.0",
			SessionID: sessionID,
			CreatedNs: time.Now().UnixNano(),
		},
	}, nil
}

// Append writes one frame to the log.
func (w *LogWriter) Append(frame Frame) error {
	if w.closed {
		return fmt.Errorf("log writer is closed")
	}

	if w.startNs == 0 {
		w.startNs = frame.CapturedNs
	}
	w.endNs = frame.CapturedNs

	chunkIdx := int(w.frameCount / ChunkSize)
	if chunkIdx != w.currentChunk {
		if err := w.rotateChunk(chunkIdx); err != nil {
			return err
		}
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to serialize frame: %w", err)
	}

	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := w.chunkFile.Write(lenBuf); err != nil {
		return fmt.Errorf("failed to write frame length: %w", err)
	}
	if _, err := w.chunkFile.Write(data); err != nil {
		return fmt.Errorf("failed to write frame data: %w", err)
	}

	w.index = append(w.index, indexEntry{
		FrameID:     w.frameCount,
		TimestampNs: frame.CapturedNs,
		ChunkID:     uint32(chunkIdx),
		Offset:      w.chunkOffset,
	})
	w.chunkOffset += uint32(4 + len(data))
	w.frameCount++

	return nil
}

func (w *LogWriter) rotateChunk(chunkIdx int) error {
	if w.chunkFile != nil {
		if err := w.chunkFile.Close(); err != nil {
			return err
		}
	}

	chunkPath := filepath.Join(w.basePath, "frames", fmt.Sprintf("chunk_%04d.bin", chunkIdx))
	f, err := os.Create(chunkPath)
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}

	w.chunkFile = f
	w.currentChunk = chunkIdx
	w.chunkOffset = 0
	return nil
}

// Close finalises the log, writing the header and the seek index.
func (w *LogWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.chunkFile != nil {
		w.chunkFile.Close()
	}

	w.header.TotalFrames = w.frameCount
	w.header.StartNs = w.startNs
	w.header.EndNs = w.endNs

	headerData, err := json.MarshalIndent(w.header, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.basePath, "header.json"), headerData, 0644); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	indexFile, err := os.Create(filepath.Join(w.basePath, "index.bin"))
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer indexFile.Close()

	for _, entry := range w.index {
		if err := binary.Write(indexFile, binary.LittleEndian, entry); err != nil {
			return fmt.Errorf("failed to write index entry: %w", err)
		}
	}
	return nil
}

// FrameCount returns the number of frames appended so far.
func (w *LogWriter) FrameCount() uint64 {
	return w.frameCount
}

// WriteLog persists a complete frame buffer as a log directory in one call.
// This is the disarm path: the recorder's frozen buffer becomes a log.
func WriteLog(basePath, sessionID string, frames []Frame) error {
	if len(frames) < MinPlaybackFrames {
		return ErrInsufficientFrames
	}
	w, err := NewLogWriter(basePath, sessionID)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := w.Append(f); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// Replayer reads frames back from a log directory.
type Replayer struct {
	basePath string
	header   LogHeader
	index    []indexEntry

	currentFrame uint64
	currentChunk int
	chunkData    []byte
}

// NewReplayer opens a log for playback. Logs with fewer than
// MinPlaybackFrames frames are refused.
func NewReplayer(basePath string) (*Replayer, error) {
	r := &Replayer{basePath: basePath, currentChunk: -1}

	headerData, err := os.ReadFile(filepath.Join(basePath, "header.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerData, &r.header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if r.header.TotalFrames < MinPlaybackFrames {
		return nil, ErrInsufficientFrames
	}

	indexFile, err := os.Open(filepath.Join(basePath, "index.bin"))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer indexFile.Close()

	r.index = make([]indexEntry, 0, r.header.TotalFrames)
	for {
		var entry indexEntry
		if err := binary.Read(indexFile, binary.LittleEndian, &entry); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read index entry: %w", err)
		}
		r.index = append(r.index, entry)
	}

	if uint64(len(r.index)) != r.header.TotalFrames {
		return nil, fmt.Errorf("index has %d entries, header claims %d", len(r.index), r.header.TotalFrames)
	}

	return r, nil
}

// Header returns the log header.
func (r *Replayer) Header() LogHeader {
	return r.header
}

// TotalFrames returns the number of frames in the log.
func (r *Replayer) TotalFrames() uint64 {
	return r.header.TotalFrames
}

// Seek positions playback at the given frame index.
func (r *Replayer) Seek(frameIdx uint64) error {
	if frameIdx >= uint64(len(r.index)) {
		return fmt.Errorf("frame index out of range: %d >= %d", frameIdx, len(r.index))
	}
	r.currentFrame = frameIdx
	return nil
}

// ReadFrame returns the current frame and advances. io.EOF signals the end
// of the recording; Seek(0) restarts playback.
func (r *Replayer) ReadFrame() (Frame, error) {
	if r.currentFrame >= uint64(len(r.index)) {
		return Frame{}, io.EOF
	}

	entry := r.index[r.currentFrame]
	if int(entry.ChunkID) != r.currentChunk {
		if err := r.loadChunk(int(entry.ChunkID)); err != nil {
			return Frame{}, err
		}
	}

	offset := entry.Offset
	if offset+4 > uint32(len(r.chunkData)) {
		return Frame{}, fmt.Errorf("invalid frame offset %d", offset)
	}
	frameLen := binary.LittleEndian.Uint32(r.chunkData[offset:])
	offset += 4
	if offset+frameLen > uint32(len(r.chunkData)) {
		return Frame{}, fmt.Errorf("invalid frame length %d", frameLen)
	}

	var frame Frame
	if err := json.Unmarshal(r.chunkData[offset:offset+frameLen], &frame); err != nil {
		return Frame{}, fmt.Errorf("failed to deserialize frame: %w", err)
	}

	r.currentFrame++
	return frame, nil
}

func (r *Replayer) loadChunk(chunkIdx int) error {
	chunkPath := filepath.Join(r.basePath, "frames", fmt.Sprintf("chunk_%04d.bin", chunkIdx))
	data, err := os.ReadFile(chunkPath)
	if err != nil {
		return fmt.Errorf("failed to read chunk: %w", err)
	}
	r.chunkData = data
	r.currentChunk = chunkIdx
	return nil
}
