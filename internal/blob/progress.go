package blob

import "io"

// ProgressReader wraps r and reports the percentage of total bytes read
// through fn. Reported values are clamped to [0,100] and never decrease,
// even if total turns out to be wrong.
type ProgressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	fn    ProgressFunc
}

func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report()
	}
	if err == io.EOF {
		p.read = p.total
		p.report()
	}
	return n, err
}

func (p *ProgressReader) report() {
	if p.fn == nil || p.total <= 0 {
		return
	}
	percent := int(p.read * 100 / p.total)
	if percent > 100 {
		percent = 100
	}
	if percent > p.last {
		p.last = percent
		p.fn(percent)
	}
}
