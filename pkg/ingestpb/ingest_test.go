// Copyright 2025 Osprey DCS Contributors. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestpb

import "testing"

func TestIngestDataRequestAccessors(t *testing.T) {
	req := &IngestDataRequest{RequestId: "r1", ProviderId: "prov-1", Payload: []byte("abc")}
	if req.GetRequestId() != "r1" || req.GetProviderId() != "prov-1" || string(req.GetPayload()) != "abc" {
		t.Fatalf("accessor mismatch: %+v", req)
	}
}

func TestIngestDataResponseAccessors(t *testing.T) {
	resp := &IngestDataResponse{RequestId: "r1", Kind: ResponseKindExceptional, StatusCode: 7, Message: "boom"}
	if resp.GetRequestId() != "r1" || resp.GetKind() != ResponseKindExceptional || resp.GetStatusCode() != 7 || resp.GetMessage() != "boom" {
		t.Fatalf("accessor mismatch: %+v", resp)
	}
}
