// Package privacy implements the single-use donation token used by the funding engine.
//
// Overview:
//   - A contributor holds a 32-byte secret note
//   - The nullifier for a campaign is MiMC(secret, campaignID) over the BN254 scalar field
//   - A Groth16 proof (gnark, BN254) shows knowledge of the secret behind a public
//     nullifier, bound to the campaign id and the donated amount
//
// Verification Model:
//   - ShapeVerifier only bounds-checks the payload; it is a stand-in and not a security boundary
//   - Groth16Verifier checks the proof against the public inputs
//
// The nullifier is the only double-spend guard: two proofs built from the same
// secret for the same campaign carry the same nullifier.
package privacy
