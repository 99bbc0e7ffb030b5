// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package wasabi manages the MetaSUB data bucket on Wasabi, an S3
// compatible object store. The bucket is laid out as:
//
//	data/...                 raw sequencing data
//	cap_analysis/<sample>/... core analysis results
//	assemblies/...           metaSPAdes assemblies
//
// Transfer operations print one line per planned transfer to the
// bucket's output and, unless run dry, perform the transfers on the
// bucket's pool. Files already present at their destination are
// skipped.
package wasabi

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/metadata"
	"github.com/metasub/utils/naming"
	"github.com/metasub/utils/pathglob"
)

// Bucket defaults.
const (
	DefaultEndpoint = "https://s3.wasabisys.com"
	DefaultRegion   = "us-east-1"
	DefaultBucket   = "metasub"
	DefaultProfile  = "wasabi"
)

// Key prefixes.
const (
	DataPrefix       = "data"
	ResultsPrefix    = "cap_analysis"
	AssembliesPrefix = "assemblies"
)

// Options configures a bucket.
type Options struct {
	// Endpoint is the S3 endpoint URL.
	Endpoint string
	// Region is the S3 region.
	Region string
	// Bucket is the bucket name.
	Bucket string
	// Profile names the AWS shared credentials profile.
	Profile string
	// Threads is the number of transfer workers.
	Threads int
}

// Bucket is the MetaSUB data bucket.
type Bucket struct {
	// Out receives one line per planned transfer.
	Out io.Writer
	// Metadata resolves city and project filters to sample names.
	Metadata *metadata.Loader
	// PublicFiles is the path of a file listing the public keys. If
	// empty, every key is public.
	PublicFiles string

	name     string
	endpoint string
	store    store
	pool     *Pool
}

// New connects to the bucket described by opts.
func New(opts Options) (*Bucket, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Region == "" {
		opts.Region = DefaultRegion
	}
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Profile: opts.Profile,
		Config: aws.Config{
			Endpoint:         aws.String(opts.Endpoint),
			Region:           aws.String(opts.Region),
			S3ForcePathStyle: aws.Bool(true),
		},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.E(errors.NotAllowed, "wasabi: create session for profile", opts.Profile, err)
	}
	b := newBucket(opts.Bucket, newS3Store(s3.New(sess), opts.Bucket), opts.Threads)
	b.endpoint = opts.Endpoint
	return b, nil
}

func newBucket(name string, s store, threads int) *Bucket {
	if threads < 1 {
		threads = 1
	}
	return &Bucket{
		Out:      os.Stdout,
		Metadata: metadata.NewLoader(),
		name:     name,
		store:    s,
		pool:     NewPool(threads),
	}
}

// Name returns the bucket's name.
func (b *Bucket) Name() string { return b.name }

// Endpoint returns the S3 endpoint URL of the bucket.
func (b *Bucket) Endpoint() string {
	if b.endpoint == "" {
		return DefaultEndpoint
	}
	return b.endpoint
}

// Close waits for all submitted transfers to complete. It returns the
// first transfer failure.
func (b *Bucket) Close() error {
	return b.pool.Close()
}

func (b *Bucket) list(ctx context.Context, prefix string, keep func(key string) bool) ([]string, error) {
	var keys []string
	err := b.store.List(ctx, prefix, func(key string) {
		if keep == nil || keep(key) {
			keys = append(keys, key)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// ListFiles returns every key in the bucket.
func (b *Bucket) ListFiles(ctx context.Context) ([]string, error) {
	return b.list(ctx, "", nil)
}

func firstElem(key string) string {
	if i := strings.IndexByte(key, '/'); i >= 0 {
		return key[:i]
	}
	return key
}

// after returns the part of s after the first occurrence of sep, or ""
// if sep does not occur.
func after(s, sep string) string {
	i := strings.Index(s, sep)
	if i < 0 {
		return ""
	}
	return s[i+len(sep):]
}

// sampleRoot returns the first three '_' separated elements of a
// key's base name: the HA unique id of a library file.
func sampleRoot(key string) string {
	tkns := strings.Split(path.Base(key), "_")
	if len(tkns) > 3 {
		tkns = tkns[:3]
	}
	return strings.Join(tkns, "_")
}

// ListUnassembled returns the data keys of samples with no assembly.
// A sample is assembled if some assemblies key has a directory named
// after it.
func (b *Bucket) ListUnassembled(ctx context.Context) ([]string, error) {
	keys, err := b.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	assembled := make(map[string]bool)
	for _, key := range keys {
		if strings.Contains(key, AssembliesPrefix) {
			assembled[naming.SampleName(path.Dir(key))] = true
		}
	}
	var unassembled []string
	for _, key := range keys {
		if firstElem(key) == DataPrefix && !assembled[sampleRoot(key)] {
			unassembled = append(unassembled, key)
		}
	}
	return unassembled, nil
}

// samples returns the identifiers of the samples matching city and
// project, or nil if both are empty.
func (b *Bucket) samples(ctx context.Context, city, project string) (map[string]bool, error) {
	if city == "" && project == "" {
		return nil, nil
	}
	tbl, err := b.Metadata.Complete(ctx)
	if err != nil {
		return nil, err
	}
	ids := tbl.Filter(city, project).AllSampleIDs()
	if len(ids) == 0 {
		log.Printf("wasabi: no samples for city %q project %q", city, project)
	}
	return ids, nil
}

// rawSampleName returns the sample name of a raw read key.
func rawSampleName(key string) string {
	name := path.Base(key)
	if i := strings.Index(name, "_1.fastq.gz"); i >= 0 {
		name = name[:i]
	}
	if i := strings.Index(name, "_2.fastq.gz"); i >= 0 {
		name = name[:i]
	}
	return name
}

// ListRaw returns the raw read files under data/, restricted to the
// samples of city and project when either is given.
func (b *Bucket) ListRaw(ctx context.Context, city, project string) ([]string, error) {
	samples, err := b.samples(ctx, city, project)
	if err != nil {
		return nil, err
	}
	return b.list(ctx, DataPrefix, func(key string) bool {
		if !strings.HasSuffix(key, ".fastq.gz") {
			return false
		}
		return samples == nil || samples[rawSampleName(key)]
	})
}

// ListContigs returns the assembly keys whose base name is contigFile.
func (b *Bucket) ListContigs(ctx context.Context, contigFile string) ([]string, error) {
	return b.list(ctx, "", func(key string) bool {
		return strings.Contains(key, AssembliesPrefix) && path.Base(key) == contigFile
	})
}

// Upload uploads a local file to key. Paths that are not regular
// files are skipped.
func (b *Bucket) Upload(ctx context.Context, local, key string, dryrun bool) {
	if info, err := os.Stat(local); err != nil || !info.Mode().IsRegular() {
		return
	}
	fmt.Fprintf(b.Out, "WASABI UPLOADING %s %s\n", local, key)
	if dryrun {
		return
	}
	b.pool.Submit("upload "+local, func() error {
		return b.store.Upload(ctx, local, key)
	})
}

// Download downloads key to a local file, creating its directory.
func (b *Bucket) Download(ctx context.Context, key, local string, dryrun bool) {
	fmt.Fprintf(b.Out, "WASABI DOWNLOADING %s %s\n", key, local)
	if dryrun {
		return
	}
	b.pool.Submit("download "+key, func() error {
		if err := os.MkdirAll(filepath.Dir(local), 0777); err != nil {
			return err
		}
		return b.store.Download(ctx, key, local)
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DownloadRaw downloads the raw reads of the samples of city and
// project (all raw reads if both are empty) into targetDir.
func (b *Bucket) DownloadRaw(ctx context.Context, city, project, targetDir string, dryrun bool) error {
	keys, err := b.ListRaw(ctx, city, project)
	if err != nil {
		return err
	}
	for _, key := range keys {
		local := targetDir + "/" + after(key, DataPrefix+"/")
		if exists(local) {
			continue
		}
		b.Download(ctx, key, local, dryrun)
	}
	return nil
}

// DownloadUnassembled downloads the data of unassembled samples into
// targetDir.
func (b *Bucket) DownloadUnassembled(ctx context.Context, targetDir string, dryrun bool) error {
	keys, err := b.ListUnassembled(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		local := targetDir + "/" + after(key, DataPrefix+"/")
		if exists(local) {
			continue
		}
		b.Download(ctx, key, local, dryrun)
	}
	return nil
}

// DownloadContigs downloads the contig files of every assembly into
// targetDir, keeping the assembly directory layout.
func (b *Bucket) DownloadContigs(ctx context.Context, targetDir, contigFile string, dryrun bool) error {
	keys, err := b.ListContigs(ctx, contigFile)
	if err != nil {
		return err
	}
	for _, key := range keys {
		local := filepath.Join(targetDir, path.Dir(after(key, AssembliesPrefix+"/")), contigFile)
		if exists(local) {
			continue
		}
		b.Download(ctx, key, local, dryrun)
	}
	return nil
}

// uploaded returns the set of name(key) for the keys that contain
// marker.
func (b *Bucket) uploaded(ctx context.Context, marker string, name func(key string) string) (map[string]bool, error) {
	keys, err := b.list(ctx, "", func(key string) bool { return strings.Contains(key, marker) })
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(keys))
	for _, key := range keys {
		names[name(key)] = true
	}
	return names, nil
}

func lastElems(file string, n int) []string {
	tkns := strings.Split(filepath.ToSlash(file), "/")
	if len(tkns) < n {
		return nil
	}
	return tkns[len(tkns)-n:]
}

// UploadRawData uploads a sequencing library, dataDir/<project>/<flowcell>/<file>,
// to data/<base of dataDir>/<project>/<flowcell>/<file>. Files whose
// base name is already in the bucket's data are skipped.
func (b *Bucket) UploadRawData(ctx context.Context, dataDir string, dryrun bool) error {
	done, err := b.uploaded(ctx, DataPrefix, path.Base)
	if err != nil {
		return err
	}
	files, err := pathglob.Expand(dataDir + "/*/*/*")
	if err != nil {
		return err
	}
	lib := filepath.Base(dataDir)
	for _, file := range files {
		if done[filepath.Base(file)] {
			continue
		}
		key := path.Join(append([]string{DataPrefix, lib}, lastElems(file, 3)...)...)
		b.Upload(ctx, file, key, dryrun)
	}
	return nil
}

// UploadResults uploads core results, resultDir/<sample>/<file>, to
// cap_analysis/<sample>/<file>. Files whose base name is already in
// the bucket's results are skipped.
func (b *Bucket) UploadResults(ctx context.Context, resultDir string, dryrun bool) error {
	done, err := b.uploaded(ctx, ResultsPrefix, path.Base)
	if err != nil {
		return err
	}
	files, err := pathglob.Expand(resultDir + "/*/*")
	if err != nil {
		return err
	}
	for _, file := range files {
		if done[filepath.Base(file)] {
			continue
		}
		key := path.Join(append([]string{ResultsPrefix}, lastElems(file, 2)...)...)
		b.Upload(ctx, file, key, dryrun)
	}
	return nil
}

// UploadContigs uploads assemblies, resultDir/<assembly>/<file>, to
// assemblies/<assembly>/<file>. Assemblies whose directory is already
// in the bucket are skipped.
func (b *Bucket) UploadContigs(ctx context.Context, resultDir string, dryrun bool) error {
	done, err := b.uploaded(ctx, AssembliesPrefix, func(key string) string { return path.Base(path.Dir(key)) })
	if err != nil {
		return err
	}
	files, err := pathglob.Expand(resultDir + "/*/*")
	if err != nil {
		return err
	}
	for _, file := range files {
		if done[filepath.Base(filepath.Dir(file))] {
			continue
		}
		rel := strings.TrimPrefix(filepath.ToSlash(strings.TrimPrefix(file, resultDir)), "/")
		b.Upload(ctx, file, AssembliesPrefix+"/"+rel, dryrun)
	}
	return nil
}
