// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pangea is a client for the Pangea analysis platform's REST
// API. Requests are authenticated with a token obtained by Login and
// sent as "Authorization: Token <token>".
package pangea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/oauth2"
)

// DefaultEndpoint is the Pangea API endpoint.
const DefaultEndpoint = "https://pangea.gimmebio.com/api"

// Names of the MetaSUB resources on Pangea.
const (
	MetasubGroupName = "MetaSUB"
	MetasubOrgName   = "MetaSUB Consortium"
)

// Organization is a Pangea organization.
type Organization struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// SampleGroup is a Pangea sample group. A library is a sample group
// that owns samples.
type SampleGroup struct {
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Sample is a Pangea sample.
type Sample struct {
	UUID     string                 `json:"uuid"`
	Name     string                 `json:"name"`
	Library  string                 `json:"library"`
	Metadata map[string]interface{} `json:"metadata"`
}

// AnalysisResult is a sample analysis result: a named set of fields
// produced by one module.
type AnalysisResult struct {
	UUID       string `json:"uuid"`
	Sample     string `json:"sample"`
	ModuleName string `json:"module_name"`
}

// Field is a field of an analysis result.
type Field struct {
	UUID           string      `json:"uuid"`
	AnalysisResult string      `json:"analysis_result"`
	Name           string      `json:"name"`
	StoredData     interface{} `json:"stored_data"`
}

// Knex is a Pangea API client.
type Knex struct {
	// Endpoint is the API's base URL.
	Endpoint string

	base   *http.Client
	client *http.Client

	mu                   sync.Mutex
	libraryUUID, orgUUID string
}

// New returns a client of the API at endpoint, issuing requests with
// the given client (http.DefaultClient if nil). The client must log
// in before creating resources.
func New(endpoint string, client *http.Client) *Knex {
	if client == nil {
		client = http.DefaultClient
	}
	return &Knex{
		Endpoint: strings.TrimSuffix(endpoint, "/"),
		base:     client,
		client:   client,
	}
}

// Login obtains an authentication token for the given user. Later
// requests carry the token.
func (k *Knex) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Token string `json:"auth_token"`
	}
	creds := map[string]string{"email": email, "password": password}
	if err := k.call(ctx, k.base, "POST", "/auth/token/login", creds, &resp); err != nil {
		return errors.E(err, "pangea: login", email)
	}
	if resp.Token == "" {
		return errors.E(errors.NotAllowed, "pangea: login", email, "no token in response")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, k.base)
	k.client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: resp.Token,
		TokenType:   "Token",
	}))
	log.Debug.Printf("pangea: logged in as %s", email)
	return nil
}

func (k *Knex) do(ctx context.Context, method, path string, in, out interface{}) error {
	return k.call(ctx, k.client, method, path, in, out)
}

func (k *Knex) call(ctx context.Context, client *http.Client, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		p, err := json.Marshal(in)
		if err != nil {
			return errors.E(errors.Invalid, "pangea: encode request", path, err)
		}
		body = bytes.NewReader(p)
	}
	req, err := http.NewRequest(method, k.Endpoint+path, body)
	if err != nil {
		return errors.E(errors.Invalid, "pangea:", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ctxhttp.Do(ctx, client, req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.E("pangea:", method, path, ctx.Err())
		}
		return errors.E(errors.Net, "pangea:", method, path, err)
	}
	defer resp.Body.Close() // nolint: errcheck
	if err := checkResponse(resp); err != nil {
		return errors.E(err, "pangea:", method, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.E(errors.Remote, "pangea: decode response of", method, path, err)
	}
	return nil
}

// checkResponse returns an error of kind Remote for non-2xx
// responses.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	p, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(p)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return errors.E(errors.Remote, errors.Temporary, msg)
	}
	return errors.E(errors.Remote, msg)
}

// AddOrg creates an organization.
func (k *Knex) AddOrg(ctx context.Context, name string) (Organization, error) {
	var org Organization
	err := k.do(ctx, "POST", "/organizations", map[string]string{"name": name}, &org)
	return org, err
}

// ListOrganizations returns every organization.
func (k *Knex) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var resp struct {
		Results []Organization `json:"results"`
	}
	err := k.do(ctx, "GET", "/organizations?format=json", nil, &resp)
	return resp.Results, err
}

// ListSampleGroups returns every sample group.
func (k *Knex) ListSampleGroups(ctx context.Context) ([]SampleGroup, error) {
	var resp struct {
		Results []SampleGroup `json:"results"`
	}
	err := k.do(ctx, "GET", "/sample_groups?format=json", nil, &resp)
	return resp.Results, err
}

// AddSampleGroup creates a sample group owned by the MetaSUB
// organization.
func (k *Knex) AddSampleGroup(ctx context.Context, name, desc string) (SampleGroup, error) {
	org, err := k.MetasubOrgUUID(ctx)
	if err != nil {
		return SampleGroup{}, err
	}
	grp := SampleGroup{Name: name, Organization: org, Description: desc}
	err = k.do(ctx, "POST", "/sample_groups", grp, &grp)
	return grp, err
}

// GetOrAddSampleGroup returns the UUID of the named sample group,
// creating it if it does not exist.
func (k *Knex) GetOrAddSampleGroup(ctx context.Context, name, desc string) (string, error) {
	groups, err := k.ListSampleGroups(ctx)
	if err != nil {
		return "", err
	}
	for _, grp := range groups {
		if grp.Name == name {
			return grp.UUID, nil
		}
	}
	grp, err := k.AddSampleGroup(ctx, name, desc)
	return grp.UUID, err
}

// AddSampleToSampleGroup adds a sample to a sample group.
func (k *Knex) AddSampleToSampleGroup(ctx context.Context, sampleUUID, groupUUID string) error {
	return k.do(ctx, "POST", "/sample_groups/"+groupUUID+"/samples",
		map[string]string{"sample_uuid": sampleUUID}, nil)
}

// AddSample creates a sample in the MetaSUB library.
func (k *Knex) AddSample(ctx context.Context, name string, metadata map[string]interface{}) (Sample, error) {
	lib, err := k.MetasubLibraryUUID(ctx)
	if err != nil {
		return Sample{}, err
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	sample := Sample{Name: name, Library: lib, Metadata: metadata}
	err = k.do(ctx, "POST", "/samples", sample, &sample)
	return sample, err
}

// AddSampleResult creates an analysis result of the given module for
// a sample.
func (k *Knex) AddSampleResult(ctx context.Context, sampleUUID, module string) (AnalysisResult, error) {
	ar := AnalysisResult{Sample: sampleUUID, ModuleName: module}
	err := k.do(ctx, "POST", "/sample_ars", ar, &ar)
	return ar, err
}

// AddSampleResultField stores data in a field of an analysis result.
func (k *Knex) AddSampleResultField(ctx context.Context, arUUID, name string, data interface{}) (Field, error) {
	f := Field{AnalysisResult: arUUID, Name: name, StoredData: data}
	err := k.do(ctx, "POST", "/sample_ar_fields", f, &f)
	return f, err
}

// MetasubLibraryUUID returns the UUID of the MetaSUB sample group.
func (k *Knex) MetasubLibraryUUID(ctx context.Context) (string, error) {
	k.mu.Lock()
	uuid := k.libraryUUID
	k.mu.Unlock()
	if uuid != "" {
		return uuid, nil
	}
	groups, err := k.ListSampleGroups(ctx)
	if err != nil {
		return "", err
	}
	for _, grp := range groups {
		if grp.Name == MetasubGroupName {
			k.mu.Lock()
			k.libraryUUID = grp.UUID
			k.mu.Unlock()
			return grp.UUID, nil
		}
	}
	return "", errors.E(errors.NotExist, "pangea: sample group", MetasubGroupName)
}

// MetasubOrgUUID returns the UUID of the MetaSUB organization.
func (k *Knex) MetasubOrgUUID(ctx context.Context) (string, error) {
	k.mu.Lock()
	uuid := k.orgUUID
	k.mu.Unlock()
	if uuid != "" {
		return uuid, nil
	}
	orgs, err := k.ListOrganizations(ctx)
	if err != nil {
		return "", err
	}
	for _, org := range orgs {
		if org.Name == MetasubOrgName {
			k.mu.Lock()
			k.orgUUID = org.UUID
			k.mu.Unlock()
			return org.UUID, nil
		}
	}
	return "", errors.E(errors.NotExist, "pangea: organization", MetasubOrgName)
}
