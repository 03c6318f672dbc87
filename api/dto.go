// Copyright 2025 Poiesic Systems
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

package api

// Disclaimer accompanies every diagnosis response.
const Disclaimer = "This diagnostic assistant is for educational purposes only and cannot replace consultation with a licensed healthcare professional."

// StatusMessage is returned by the root endpoint.
const StatusMessage = "Medical Diagnosis AI API is running"

// SymptomInput is the body of POST /diagnose.
// A nil TopK selects the server default.
type SymptomInput struct {
	Text string `json:"text"`
	TopK *int   `json:"top_k,omitempty"`
}

// DiseasePrediction is one ranked disease.
type DiseasePrediction struct {
	Disease     string   `json:"disease"`
	Confidence  float32  `json:"confidence"`
	Description string   `json:"description"`
	Precautions []string `json:"precautions"`
}

// DiagnosisResponse is the body returned by POST /diagnose.
type DiagnosisResponse struct {
	Disclaimer  string              `json:"disclaimer"`
	Predictions []DiseasePrediction `json:"predictions"`
}

// StatusResponse is the body returned by GET /.
type StatusResponse struct {
	Message    string `json:"message"`
	Disclaimer string `json:"disclaimer"`
}

// PrecautionInput is the body of POST /precautions.
type PrecautionInput struct {
	Disease string `json:"disease"`
	Text    string `json:"text"`
}

// RankedPrecaution is one precaution with its relevance to the request text.
type RankedPrecaution struct {
	Precaution     string  `json:"precaution"`
	RelevanceScore float32 `json:"relevance_score"`
}

// PrecautionResponse is the body returned by POST /precautions.
type PrecautionResponse struct {
	Disease     string             `json:"disease"`
	Precautions []RankedPrecaution `json:"precautions"`
}

// HealthResponse is the body returned by GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Diseases int    `json:"diseases"`
}
