package model

// wineMACMD5 is the fixed mac digest clients report when running under
// wine, where real adapter addresses are unavailable.
const wineMACMD5 = "b4ec3c4334a0249dae95c284ec5983df"

// ClientHashes is the hardware identity block a client sends at login:
// five colon-separated fields inside the client info line.
type ClientHashes struct {
	OsuMD5    string // executable digest
	MACList   string // plain adapter addresses
	MACMD5    string // adapter address set digest
	UniqueMD5 string // install-unique id digest
	DiskMD5   string // disk serial digest
}

// Valid reports whether the identifying digests are all present.
func (h ClientHashes) Valid() bool {
	return h.MACMD5 != "" && h.UniqueMD5 != "" && h.DiskMD5 != ""
}

// RunningUnderWine reports whether the client could not read adapter
// addresses, in which case only UniqueMD5 identifies the machine.
func (h ClientHashes) RunningUnderWine() bool {
	return h.MACMD5 == wineMACMD5
}
