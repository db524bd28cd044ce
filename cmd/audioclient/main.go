// Command audioclient exercises the streaming endpoint. It either streams a
// WAV file as independent chunks or synthesizes tone chunks, and prints the
// classification reply for each one.
package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// Each streamed chunk must be a complete WAV container on its own, so the
// client re-wraps every slice of samples with a fresh header.
const (
	sampleRate    = 22050
	chunkSeconds  = 1.0
	chunkInterval = 250 * time.Millisecond
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/v1/stream", "WebSocket endpoint")
	audioFile := flag.String("audio", "", "Optional WAV file (16-bit mono) to stream; a tone is synthesized otherwise")
	chunks := flag.Int("chunks", 5, "Number of chunks to send when synthesizing")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", *serverURL)

	var payloads [][]byte
	if *audioFile != "" {
		payloads = fileChunks(*audioFile)
	} else {
		payloads = toneChunks(*chunks)
	}

	for i, blob := range payloads {
		if err := conn.WriteMessage(websocket.BinaryMessage, blob); err != nil {
			log.Fatalf("Failed to send chunk %d: %v", i+1, err)
		}

		_, reply, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("Failed to read reply: %v", err)
		}

		var result struct {
			Emotion    string `json:"emotion"`
			Confidence int    `json:"confidence"`
			Error      string `json:"error"`
		}
		if err := json.Unmarshal(reply, &result); err != nil {
			log.Fatalf("Malformed reply: %s", reply)
		}
		if result.Error != "" {
			log.Printf("Chunk %d: error: %s", i+1, result.Error)
		} else {
			log.Printf("Chunk %d: emotion=%s confidence=%d", i+1, result.Emotion, result.Confidence)
		}

		time.Sleep(chunkInterval)
	}

	log.Printf("Done: %d chunks", len(payloads))
}

// fileChunks slices a 16-bit mono WAV file into independently decodable
// one-second WAV chunks.
func fileChunks(path string) [][]byte {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read audio file: %v", err)
	}
	if len(raw) < 44 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	numChannels := binary.LittleEndian.Uint16(raw[22:24])
	rate := binary.LittleEndian.Uint32(raw[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(raw[34:36])
	if numChannels != 1 || bitsPerSample != 16 {
		log.Fatalf("Expected 16-bit mono WAV, got %d-bit %d-channel", bitsPerSample, numChannels)
	}
	log.Printf("WAV file: rate=%d channels=%d bits=%d", rate, numChannels, bitsPerSample)

	data := raw[44:]
	bytesPerChunk := int(float64(rate)*chunkSeconds) * 2

	var out [][]byte
	for start := 0; start < len(data); start += bytesPerChunk {
		end := start + bytesPerChunk
		if end > len(data) {
			end = len(data)
		}
		out = append(out, wrapWAV(data[start:end], int(rate)))
	}
	return out
}

// toneChunks synthesizes n one-second sine chunks at distinct frequencies.
func toneChunks(n int) [][]byte {
	var out [][]byte
	for i := 0; i < n; i++ {
		freq := 220.0 * math.Pow(2, float64(i)/4.0)
		samples := int(float64(sampleRate) * chunkSeconds)
		pcm := make([]byte, samples*2)
		for s := 0; s < samples; s++ {
			v := int16(12000 * math.Sin(2*math.Pi*freq*float64(s)/float64(sampleRate)))
			binary.LittleEndian.PutUint16(pcm[s*2:], uint16(v))
		}
		out = append(out, wrapWAV(pcm, sampleRate))
	}
	return out
}

// wrapWAV prepends a standard 44-byte PCM header to 16-bit mono sample data.
func wrapWAV(pcm []byte, rate int) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))      // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))     // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
