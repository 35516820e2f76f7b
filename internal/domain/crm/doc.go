// Package crm contains the CRM Integration bounded context.
// This context manages connection lifecycles to external CRM backends and
// the synchronization of detected signals into them.
//
// Key concepts:
//   - Provider: enumerated CRM backend (HubSpot, Salesforce, Pipedrive, Apollo, Attio, Zoho)
//   - ProviderClient: port interface each backend implements (auth URL, code
//     exchange, API-key validation, signal push)
//   - Integration: aggregate holding one user's connection to one provider,
//     including credentials and sync policy
//   - SyncLog: append-only record of one push attempt into one provider
//   - StatePayload: CSRF nonce carried through the OAuth redirect
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package crm
