// Package parflate decompresses gzip-wrapped DEFLATE streams of ASCII text
// across multiple worker threads.
//
// A conventional gzip decoder is forced to run sequentially, because every
// block's back-references point into the 32 KiB of output that precedes it.
// parflate instead splits the compressed stream into chunks: each worker
// locates a parseable block boundary inside its chunk, decodes with
// placeholder symbols standing in for the unknown context, and resolves the
// placeholders once the upstream worker hands over the real bytes.  On
// ASCII text this symbolic pass is exact, so the concatenated output is
// byte-identical to a sequential decode.
//
// The input must be a single-member gzip stream, fully in memory, whose
// decompressed payload stays within the byte range ['\t'..'~'].  CRC-32
// verification is off by default and available as an option.
package parflate
